// Package workflow drives a booking conversation one turn at a time:
// gather patient details, offer slots, take a selection, confirm and book.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/dialogue"
	"github.com/hackgods/conversational-appointment-booking/internal/doctor"
	"github.com/hackgods/conversational-appointment-booking/internal/intake"
	"github.com/hackgods/conversational-appointment-booking/internal/llm"
)

var tracer = otel.Tracer("booking/workflow")

const (
	maxSelectionAttempts = 3
	defaultMaxSlots      = 5
	maxHistory           = 20
)

var (
	yesWords = []string{"yes", "confirm", "ok", "sure", "correct", "right", "yep", "yeah", "y"}
	noWords  = []string{"no", "nope", "cancel", "different", "change", "n"}

	digitRun = regexp.MustCompile(`\d+`)
)

// DoctorDirectory is the part of the doctor registry the flow needs.
type DoctorDirectory interface {
	List(ctx context.Context, activeOnly bool) ([]doctor.Doctor, error)
	FindByName(ctx context.Context, name string) (*doctor.Doctor, error)
	ListBySpecialization(ctx context.Context, s doctor.Specialization) ([]doctor.Doctor, error)
}

// Booker finds open slots and books them.
type Booker interface {
	FindSlotsFor(ctx context.Context, doc doctor.Doctor, q appointment.SlotQuery) ([]appointment.SlotCandidate, error)
	Create(ctx context.Context, in appointment.NewAppointment) (*appointment.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Location() *time.Location
}

type Extractor interface {
	Extract(ctx context.Context, history []llm.Message, latest string) intake.PatientInfo
}

type Responder interface {
	Respond(ctx context.Context, role dialogue.Role, userMessage string, fields map[string]string) string
	Greeting(ctx context.Context) string
}

type Controller struct {
	doctors   DoctorDirectory
	booker    Booker
	extractor Extractor
	responder Responder
	maxSlots  int
	metrics   *Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

type Option func(*Controller)

func WithMetrics(m *Metrics) Option         { return func(c *Controller) { c.metrics = m } }
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }
func WithMaxSlots(n int) Option             { return func(c *Controller) { c.maxSlots = n } }

func NewController(doctors DoctorDirectory, booker Booker, extractor Extractor, responder Responder, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		doctors:   doctors,
		booker:    booker,
		extractor: extractor,
		responder: responder,
		maxSlots:  defaultMaxSlots,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxSlots <= 0 {
		c.maxSlots = defaultMaxSlots
	}
	return c
}

// StartConversation returns the opening greeting.
func (c *Controller) StartConversation(ctx context.Context) string {
	return c.responder.Greeting(ctx)
}

// ProcessTurn applies one user message to the durable context and returns
// the new context with Response set. It never fails; every failure path
// still produces a reply. The caller must persist the result whole.
func (c *Controller) ProcessTurn(ctx context.Context, userMessage string, durable TurnContext) TurnContext {
	tc := durable.clone()
	tc.UserMessage = userMessage
	tc.Response = ""
	tc.Error = ""
	tc.Path = nil
	if tc.Phase == "" {
		tc.Phase = PhaseStart
	}

	from := tc.Phase

	ctx, span := tracer.Start(ctx, "workflow.ProcessTurn", trace.WithAttributes(
		attribute.String("booking.conversation_id", tc.ConversationID),
		attribute.String("booking.phase_from", string(from)),
	))
	defer span.End()

	switch tc.Phase {
	case PhaseStart, PhaseGatheringInfo:
		c.gatherInfo(ctx, &tc)
	case PhaseFindingSlots:
		c.findAndPresent(ctx, &tc)
	case PhasePresentingSlots:
		// the list went out with the previous reply; this message answers it
		tc.enter(PhaseAwaitingSelection)
		tc.SelectionAttempts = 0
		c.awaitSelection(ctx, &tc)
	case PhaseAwaitingSelection:
		c.awaitSelection(ctx, &tc)
	case PhaseConfirming:
		c.confirm(ctx, &tc)
	case PhaseCompleted:
		tc.Response = msgAlreadyBooked
	case PhaseError:
		tc = tc.reset()
		tc.enter(PhaseStart)
		c.gatherInfo(ctx, &tc)
	default:
		reason := fmt.Sprintf("unexpected workflow phase %q", tc.Phase)
		c.logger.Warn().Str("conversation_id", tc.ConversationID).Str("phase", string(tc.Phase)).Msg("unexpected workflow phase")
		tc = tc.reset()
		tc.enter(PhaseError)
		tc.Error = reason
		tc.Response = msgResetApology
	}

	if strings.TrimSpace(tc.Response) == "" {
		tc.Response = dialogue.Apology
	}
	if tc.Error != "" {
		span.RecordError(errors.New(tc.Error))
	}
	tc.History = appendHistory(tc.History, userMessage, tc.Response)

	span.SetAttributes(attribute.String("booking.phase_to", string(tc.Phase)))
	c.metrics.observeTurn(from, tc.Phase)
	c.logger.Info().
		Str("conversation_id", tc.ConversationID).
		Str("from", string(from)).
		Str("to", string(tc.Phase)).
		Str("role", string(tc.CurrentRole)).
		Msg("workflow transition")
	return tc
}

func (c *Controller) gatherInfo(ctx context.Context, tc *TurnContext) {
	tc.CurrentRole = dialogue.RoleIntake

	extracted := c.extractor.Extract(ctx, tc.History, tc.UserMessage)
	tc.PatientInfo = intake.Merge(tc.PatientInfo, extracted)
	tc.HasRequiredInfo = intake.HasRequiredInfo(tc.PatientInfo)

	if tc.HasRequiredInfo {
		c.findAndPresent(ctx, tc)
		return
	}

	fields := tc.PatientInfo.Fields()
	fields["missing_information"] = strings.Join(intake.Missing(tc.PatientInfo), ", ")
	tc.Response = c.responder.Respond(ctx, dialogue.RoleIntake, tc.UserMessage, fields)
	tc.enter(PhaseGatheringInfo)
}

func (c *Controller) findAndPresent(ctx context.Context, tc *TurnContext) {
	tc.enter(PhaseFindingSlots)
	c.findSlots(ctx, tc)
	if tc.Phase == PhasePresentingSlots {
		c.presentSlots(tc)
	}
}

func (c *Controller) findSlots(ctx context.Context, tc *TurnContext) {
	tc.CurrentRole = dialogue.RoleScheduling

	doc, err := c.resolveDoctor(ctx, tc.PatientInfo)
	if err != nil {
		c.fail(tc, "find doctor", err, msgSlotSearchFailed)
		return
	}

	var slots []appointment.SlotCandidate
	if doc != nil {
		slots, err = c.booker.FindSlotsFor(ctx, *doc, c.slotQuery(tc.PatientInfo))
		if err != nil {
			c.fail(tc, "find slots", err, msgSlotSearchFailed)
			return
		}
	}

	if len(slots) == 0 {
		tc.AvailableSlots = nil
		tc.HasRequiredInfo = false
		tc.enter(PhaseGatheringInfo)
		tc.CurrentRole = dialogue.RoleIntake
		tc.Response = msgNoSlots
		return
	}

	if len(slots) > c.maxSlots {
		slots = slots[:c.maxSlots]
	}
	tc.AvailableSlots = slots
	tc.SelectedSlot = nil
	tc.enter(PhasePresentingSlots)
}

// resolveDoctor picks, in order: the named doctor, a doctor for the
// specialization the reason suggests, a general physician, then anyone.
// A nil doctor with nil error means the clinic has nobody active.
func (c *Controller) resolveDoctor(ctx context.Context, info intake.PatientInfo) (*doctor.Doctor, error) {
	if pref := strings.TrimSpace(info.DoctorPreference); pref != "" {
		d, err := c.doctors.FindByName(ctx, pref)
		switch {
		case err == nil && d != nil:
			return d, nil
		case err != nil && !errors.Is(err, doctor.ErrDoctorNotFound):
			return nil, err
		}
	}

	if spec, ok := doctor.InferSpecialization(info.Reason); ok {
		ds, err := c.doctors.ListBySpecialization(ctx, spec)
		if err != nil {
			return nil, err
		}
		if len(ds) > 0 {
			return &ds[0], nil
		}
	}

	ds, err := c.doctors.ListBySpecialization(ctx, doctor.GeneralPhysician)
	if err != nil {
		return nil, err
	}
	if len(ds) > 0 {
		return &ds[0], nil
	}

	all, err := c.doctors.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		return &all[0], nil
	}
	return nil, nil
}

// slotQuery starts at the preferred date when it is valid and not in the
// past, otherwise today.
func (c *Controller) slotQuery(info intake.PatientInfo) appointment.SlotQuery {
	q := appointment.SlotQuery{Limit: c.maxSlots}

	loc := c.booker.Location()
	if d, err := time.ParseInLocation(appointment.DateLayout, info.PreferredDate, loc); err == nil {
		today := c.now().In(loc)
		today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
		if !d.Before(today) {
			q.From = d
		}
	}
	if tod, ok := appointment.ParseTimeOfDay(info.PreferredTime); ok {
		q.TimeOfDay = tod
	}
	return q
}

func (c *Controller) presentSlots(tc *TurnContext) {
	tc.CurrentRole = dialogue.RoleScheduling
	tc.Response = dialogue.SlotList(tc.AvailableSlots)
	tc.SelectionAttempts = 0
	tc.enter(PhaseAwaitingSelection)
}

func (c *Controller) awaitSelection(ctx context.Context, tc *TurnContext) {
	tc.CurrentRole = dialogue.RoleScheduling
	if len(tc.AvailableSlots) == 0 {
		c.findAndPresent(ctx, tc)
		return
	}

	n := len(tc.AvailableSlots)
	idx, found := firstNumber(strings.ToLower(strings.TrimSpace(tc.UserMessage)))
	if found && idx >= 1 && idx <= n {
		slot := tc.AvailableSlots[idx-1]
		tc.SelectedSlot = &slot
		tc.SelectionAttempts = 0
		tc.enter(PhaseConfirming)
		tc.CurrentRole = dialogue.RoleConfirmation
		tc.AwaitingConfirmation = true
		tc.Response = dialogue.ConfirmationSummary(tc.PatientInfo, slot)
		return
	}

	tc.SelectionAttempts++
	if tc.SelectionAttempts >= maxSelectionAttempts {
		tc.SelectionAttempts = 0
		tc.enter(PhasePresentingSlots)
		tc.Response = msgReshowSlots + "\n\n" + dialogue.SlotList(tc.AvailableSlots)
		return
	}

	tc.enter(PhaseAwaitingSelection)
	if found {
		tc.Response = msgSlotOutOfRange(n)
	} else {
		tc.Response = msgEnterSlotNumber
	}
}

// firstNumber returns the first run of digits in s. A run too long to
// parse reports found with index 0, which is always out of range.
func firstNumber(s string) (int, bool) {
	run := digitRun.FindString(s)
	if run == "" {
		return 0, false
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return 0, true
	}
	return n, true
}

func (c *Controller) confirm(ctx context.Context, tc *TurnContext) {
	tc.CurrentRole = dialogue.RoleConfirmation
	msg := strings.ToLower(strings.TrimSpace(tc.UserMessage))

	switch {
	case containsAny(msg, yesWords):
		c.finalize(ctx, tc)
	case containsAny(msg, noWords):
		tc.enter(PhaseAwaitingSelection)
		tc.CurrentRole = dialogue.RoleScheduling
		tc.AwaitingConfirmation = false
		tc.SelectedSlot = nil
		tc.SelectionAttempts = 0
		tc.Response = msgPickDifferent
	default:
		tc.enter(PhaseConfirming)
		tc.Response = msgConfirmReprompt
	}
}

func containsAny(msg string, words []string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

// finalize books the selected slot and marks it confirmed. A failed
// confirm after a successful create still completes: the slot is held.
func (c *Controller) finalize(ctx context.Context, tc *TurnContext) {
	if tc.SelectedSlot == nil {
		c.metrics.observeFinalize("no_selection")
		c.fail(tc, "finalize", errors.New("no slot selected"), msgBookingFailed)
		return
	}
	slot := *tc.SelectedSlot

	start, err := slot.Start(c.booker.Location())
	if err != nil {
		c.metrics.observeFinalize("error")
		c.fail(tc, "finalize", err, msgBookingFailed)
		return
	}

	appt, err := c.booker.Create(ctx, appointment.NewAppointment{
		PatientName:    tc.PatientInfo.Name,
		PatientPhone:   tc.PatientInfo.Phone,
		PatientEmail:   tc.PatientInfo.Email,
		ScheduledAt:    start,
		DoctorID:       slot.DoctorID,
		Reason:         tc.PatientInfo.Reason,
		ConversationID: tc.ConversationID,
	})
	if errors.Is(err, appointment.ErrSlotInPast) {
		c.metrics.observeFinalize("stale")
		c.logger.Info().Str("conversation_id", tc.ConversationID).Str("slot_id", slot.SlotID.String()).Msg("selected slot has passed, searching again")
		c.researchSlots(ctx, tc)
		return
	}
	if err != nil {
		result := "error"
		if errors.Is(err, appointment.ErrSlotAlreadyBooked) || errors.Is(err, appointment.ErrSlotBeingBooked) {
			result = "conflict"
		}
		c.metrics.observeFinalize(result)
		c.fail(tc, "create appointment", err, msgBookingFailed)
		return
	}

	if confirmed, err := c.booker.Confirm(ctx, appt.ID); err != nil {
		c.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("appointment created but not confirmed")
	} else {
		appt = confirmed
	}

	c.metrics.observeFinalize("booked")
	tc.AppointmentID = appt.ID.String()
	tc.AwaitingConfirmation = false
	tc.enter(PhaseCompleted)
	tc.Response = dialogue.SuccessSummary(*appt)
}

// researchSlots drops a selection whose time has passed and offers fresh
// slots for the same request.
func (c *Controller) researchSlots(ctx context.Context, tc *TurnContext) {
	tc.SelectedSlot = nil
	tc.AwaitingConfirmation = false
	tc.SelectionAttempts = 0
	c.findAndPresent(ctx, tc)
	if tc.Phase == PhaseAwaitingSelection {
		tc.Response = msgSlotPassed + "\n\n" + tc.Response
	}
}

func (c *Controller) fail(tc *TurnContext, op string, err error, userMsg string) {
	c.logger.Error().Err(err).Str("conversation_id", tc.ConversationID).Str("op", op).Msg("workflow step failed")
	tc.enter(PhaseError)
	tc.Error = fmt.Sprintf("%s: %v", op, err)
	tc.Response = userMsg
}

func appendHistory(h []llm.Message, user, reply string) []llm.Message {
	if strings.TrimSpace(user) != "" {
		h = append(h, llm.User(user))
	}
	h = append(h, llm.Assistant(reply))
	if len(h) > maxHistory {
		h = append([]llm.Message(nil), h[len(h)-maxHistory:]...)
	}
	return h
}
