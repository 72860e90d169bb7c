package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"golang.org/x/crypto/bcrypt"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
	"venue-pos/internal/locale"
	"venue-pos/internal/microservices/staffauth/repository"
)

var (
	ErrInvalidPIN       = errors.New("invalid pin")
	ErrUnknownVenueCode = errors.New("unknown venue code")
	ErrWrongState       = errors.New("action not allowed in this step")
	ErrUnknownStaff     = errors.New("unknown staff member")
	ErrInvalidDigit     = errors.New("pin digits must be 0-9")
)

// Kiosk login steps.
const (
	StateCodeEntry      = "code_entry"
	StateStaffSelection = "staff_selection"
	StatePINEntry       = "pin_entry"
	StateAuthenticated  = "authenticated"
)

const (
	eventCode    = "code"
	eventSelect  = "select"
	eventSuccess = "success"
	eventBack    = "back"
)

// LocalizedError carries the message shown on the kiosk next to the cause.
type LocalizedError struct {
	Err     error
	Message string
}

func (e *LocalizedError) Error() string { return e.Err.Error() }
func (e *LocalizedError) Unwrap() error { return e.Err }

type Result struct {
	Staff     domain.Staff `json:"staff"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Landing   string       `json:"landing"`
}

type StaffView struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

type KioskView struct {
	ID            string        `json:"id"`
	State         string        `json:"state"`
	Venue         *domain.Venue `json:"venue,omitempty"`
	Staff         []StaffView   `json:"staff,omitempty"`
	Selected      *StaffView    `json:"selected,omitempty"`
	DigitsEntered int           `json:"digits_entered"`
	PINLength     int           `json:"pin_length"`
}

// Kiosk walks one shared device through code entry, staff selection and PIN entry.
// Failed PINs clear the entered digits and stay on PIN entry; there is no lockout.
type Kiosk struct {
	id        string
	repo      repository.StaffRepositoryInterface
	tokens    *Tokens
	pinLength int
	lang      string
	log       *logger.Logger

	mu       sync.Mutex
	machine  *fsm.FSM
	venue    *domain.Venue
	staff    []domain.Staff
	selected *domain.Staff
	digits   []byte
	fixed    bool
}

func newKiosk(repo repository.StaffRepositoryInterface, tokens *Tokens, pinLength int, lang string, lg *logger.Logger) *Kiosk {
	k := &Kiosk{id: uuid.NewString(), repo: repo, tokens: tokens, pinLength: pinLength, lang: lang, log: lg}
	k.machine = fsm.NewFSM(StateCodeEntry, fsm.Events{
		{Name: eventCode, Src: []string{StateCodeEntry}, Dst: StateStaffSelection},
		{Name: eventSelect, Src: []string{StateStaffSelection}, Dst: StatePINEntry},
		{Name: eventSuccess, Src: []string{StatePINEntry}, Dst: StateAuthenticated},
		{Name: eventBack, Src: []string{StatePINEntry}, Dst: StateStaffSelection},
		{Name: eventBack, Src: []string{StateStaffSelection}, Dst: StateCodeEntry},
	}, fsm.Callbacks{
		"enter_" + StateCodeEntry:      func(context.Context, *fsm.Event) { k.venue, k.staff = nil, nil },
		"enter_" + StateStaffSelection: func(context.Context, *fsm.Event) { k.selected = nil },
		"enter_state":                  func(context.Context, *fsm.Event) { k.digits = k.digits[:0] },
	})
	return k
}

func (k *Kiosk) ID() string { return k.id }

func (k *Kiosk) State() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.machine.Current()
}

// Digits is how many PIN digits have been entered so far.
func (k *Kiosk) Digits() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.digits)
}

func (k *Kiosk) event(ctx context.Context, name string) error {
	if !k.machine.Can(name) {
		return fmt.Errorf("%w: %s from %s", ErrWrongState, name, k.machine.Current())
	}
	return k.machine.Event(ctx, name)
}

// SubmitCode resolves the venue and moves to staff selection.
func (k *Kiosk) SubmitCode(ctx context.Context, code string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.machine.Can(eventCode) {
		return fmt.Errorf("%w: code from %s", ErrWrongState, k.machine.Current())
	}
	v, err := k.repo.VenueByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return &LocalizedError{Err: ErrUnknownVenueCode, Message: locale.T(k.lang, locale.MsgUnknownVenueCode)}
	}
	if err != nil {
		return err
	}
	return k.enterVenue(ctx, v)
}

func (k *Kiosk) enterVenue(ctx context.Context, v domain.Venue) error {
	staff, err := k.repo.ActiveStaff(ctx, v.ID)
	if err != nil {
		return err
	}
	if err := k.event(ctx, eventCode); err != nil {
		return err
	}
	k.venue, k.staff = &v, staff
	return nil
}

func (k *Kiosk) SelectStaff(ctx context.Context, staffID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.machine.Can(eventSelect) {
		return fmt.Errorf("%w: select from %s", ErrWrongState, k.machine.Current())
	}
	for i := range k.staff {
		if k.staff[i].ID == staffID {
			if err := k.event(ctx, eventSelect); err != nil {
				return err
			}
			s := k.staff[i]
			k.selected = &s
			return nil
		}
	}
	return ErrUnknownStaff
}

// EnterDigit appends one digit. The last digit triggers verification: a match
// returns the session, a mismatch clears the digits and returns ErrInvalidPIN.
func (k *Kiosk) EnterDigit(ctx context.Context, d rune) (*Result, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.machine.Current() != StatePINEntry {
		return nil, fmt.Errorf("%w: digit in %s", ErrWrongState, k.machine.Current())
	}
	if d < '0' || d > '9' {
		return nil, ErrInvalidDigit
	}
	k.digits = append(k.digits, byte(d))
	if len(k.digits) < k.pinLength {
		return nil, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(k.selected.PINHash), k.digits)
	k.digits = k.digits[:0]
	if err != nil {
		k.log.Warn("pin_rejected", map[string]any{"kiosk_id": k.id, "staff_id": k.selected.ID})
		return nil, &LocalizedError{Err: ErrInvalidPIN, Message: locale.T(k.lang, locale.MsgInvalidPIN)}
	}
	token, exp, err := k.tokens.Issue(*k.selected)
	if err != nil {
		return nil, err
	}
	if err := k.event(ctx, eventSuccess); err != nil {
		return nil, err
	}
	k.log.Info("staff_logged_in", map[string]any{"kiosk_id": k.id, "staff_id": k.selected.ID, "venue_id": k.selected.VenueID})
	s := *k.selected
	s.PINHash = ""
	return &Result{Staff: s, Token: token, ExpiresAt: exp, Landing: s.Role.LandingPage()}, nil
}

// Back unwinds one step and discards any entered digits.
func (k *Kiosk) Back(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.fixed && k.machine.Current() == StateStaffSelection {
		return fmt.Errorf("%w: venue is fixed", ErrWrongState)
	}
	return k.event(ctx, eventBack)
}

func (k *Kiosk) View() KioskView {
	k.mu.Lock()
	defer k.mu.Unlock()
	v := KioskView{ID: k.id, State: k.machine.Current(), Venue: k.venue, DigitsEntered: len(k.digits), PINLength: k.pinLength}
	for _, s := range k.staff {
		v.Staff = append(v.Staff, StaffView{ID: s.ID, Name: s.Name, Role: s.Role})
	}
	if k.selected != nil {
		v.Selected = &StaffView{ID: k.selected.ID, Name: k.selected.Name, Role: k.selected.Role}
	}
	return v
}
