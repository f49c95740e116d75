package interaction

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"feestplanner/internal/catalog"
	"feestplanner/internal/crypto"
	"feestplanner/internal/storage"
)

type Phase int

const (
	PhaseEditing Phase = iota
	PhaseSubmitting
	PhaseSent
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSent:
		return "sent"
	default:
		return "unknown"
	}
}

var (
	ErrMissingContactName = errors.New("contact name is required")
	ErrInvalidEmail       = errors.New("contact email is not a valid address")
	ErrMissingMessage     = errors.New("contact message is required")
	ErrNotEditing         = errors.New("contact form is not editable right now")
)

type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (f Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrMissingContactName
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(f.Email))
	if err != nil || addr.Name != "" {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(f.Message) == "" {
		return ErrMissingMessage
	}
	return nil
}

type Status int

const (
	StatusSent Status = iota + 1
	StatusFailed
)

// Result is the outcome of one submission. Reference identifies the delivery
// record when Status is StatusSent; Err explains a failure.
type Result struct {
	Status    Status
	Reference string
	Err       error
}

type Submitter interface {
	Submit(ctx context.Context, clientID string, v catalog.Vendor, f Form) Result
}

// Timer is the part of *time.Timer the contact flow needs.
type Timer interface {
	Stop() bool
}

type ContactConfig struct {
	ClientID   string
	Vendor     catalog.Vendor
	Submitter  Submitter
	ResetAfter time.Duration
	// OnReset runs on the timer goroutine after a sent form went back to
	// editing.
	OnReset   func()
	AfterFunc func(d time.Duration, f func()) Timer
}

// Contact is the contact form of one vendor card:
//
//	editing -> submitting -> sent -> (timer) editing
//	submitting -> editing on failure, keeping the form
type Contact struct {
	mu         sync.Mutex
	phase      Phase
	form       Form
	clientID   string
	vendor     catalog.Vendor
	submitter  Submitter
	resetAfter time.Duration
	onReset    func()
	afterFunc  func(d time.Duration, f func()) Timer
	timer      Timer
}

func NewContact(cfg ContactConfig) *Contact {
	after := cfg.AfterFunc
	if after == nil {
		after = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	reset := cfg.ResetAfter
	if reset <= 0 {
		reset = 2 * time.Second
	}
	return &Contact{
		clientID:   cfg.ClientID,
		vendor:     cfg.Vendor,
		submitter:  cfg.Submitter,
		resetAfter: reset,
		onReset:    cfg.OnReset,
		afterFunc:  after,
	}
}

func (c *Contact) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Contact) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

func (c *Contact) Edit(f Form) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseEditing {
		return ErrNotEditing
	}
	c.form = f
	return nil
}

// Submit validates and hands the form to the submitter. Validation errors
// leave the flow in editing. A failed delivery also returns to editing with
// the form intact; a successful one moves to sent and arms the reset timer.
func (c *Contact) Submit(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.phase != PhaseEditing {
		c.mu.Unlock()
		return Result{}, ErrNotEditing
	}
	if err := c.form.Validate(); err != nil {
		c.mu.Unlock()
		return Result{}, err
	}
	c.phase = PhaseSubmitting
	form := c.form
	c.mu.Unlock()

	res := c.submitter.Submit(ctx, c.clientID, c.vendor, form)

	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Status != StatusSent {
		res.Status = StatusFailed
		c.phase = PhaseEditing
		return res, nil
	}
	c.phase = PhaseSent
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.afterFunc(c.resetAfter, c.reset)
	return res, nil
}

// Close stops a pending reset timer.
func (c *Contact) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Contact) reset() {
	c.mu.Lock()
	if c.phase != PhaseSent {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseEditing
	c.form = Form{}
	c.timer = nil
	onReset := c.onReset
	c.mu.Unlock()

	if onReset != nil {
		onReset()
	}
}

// ThankYouText is shown while the flow is in the sent phase.
func ThankYouText(v catalog.Vendor) string {
	return fmt.Sprintf("Bedankt voor je interesse in %s. Ze nemen spoedig contact met je op.", v.Name)
}

type ContactOutbox interface {
	InsertContactRequest(ctx context.Context, r storage.ContactRequest) (int64, error)
	LogAction(ctx context.Context, e storage.AuditEntry) error
}

// OutboxSubmitter stores the form sealed in the contact outbox, where a
// delivery integration picks it up.
type OutboxSubmitter struct {
	Outbox  ContactOutbox
	Keyring *crypto.Keyring
	Logger  zerolog.Logger
}

type outboxPayload struct {
	Form
	VendorID   string    `json:"vendor_id"`
	VendorName string    `json:"vendor_name"`
	SentAt     time.Time `json:"sent_at"`
}

func (o *OutboxSubmitter) Submit(ctx context.Context, clientID string, v catalog.Vendor, f Form) Result {
	sealed, err := o.Keyring.SealJSON(outboxPayload{
		Form:       f,
		VendorID:   v.ID,
		VendorName: v.Name,
		SentAt:     time.Now().UTC(),
	}, clientID)
	if err != nil {
		o.Logger.Error().Err(err).Str("client_id", clientID).Str("vendor_id", v.ID).Msg("seal contact request failed")
		return Result{Status: StatusFailed, Err: err}
	}

	id, err := o.Outbox.InsertContactRequest(ctx, storage.ContactRequest{
		ClientID:    clientID,
		VendorID:    v.ID,
		VendorEmail: v.Email,
		EncPayload:  sealed,
	})
	if err != nil {
		o.Logger.Error().Err(err).Str("client_id", clientID).Str("vendor_id", v.ID).Msg("store contact request failed")
		return Result{Status: StatusFailed, Err: err}
	}

	ref := strconv.FormatInt(id, 10)
	if err := o.Outbox.LogAction(ctx, storage.AuditEntry{
		ClientID: clientID,
		Action:   "contact_request",
		MetaJSON: fmt.Sprintf(`{"vendor_id":%q,"request_id":%s}`, v.ID, ref),
	}); err != nil {
		o.Logger.Warn().Err(err).Str("client_id", clientID).Msg("audit contact request failed")
	}
	return Result{Status: StatusSent, Reference: ref}
}
