package lead

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/catalog"
	"github.com/m3rciful/leadbot/internal/deadline"
)

// DefaultNeuroBudget is the fixed price quoted for neuro photo sessions.
const DefaultNeuroBudget = "2500 ₽"

// Fields reported by IncompleteError.
const (
	FieldService     = "service"
	FieldTask        = "task"
	FieldDeadline    = "deadline"
	FieldFile        = "file"
	FieldDescription = "description"
)

// ErrIncomplete marks a draft that cannot be submitted yet.
var ErrIncomplete = errors.New("lead: incomplete draft")

// IncompleteError names the first missing field of a draft.
type IncompleteError struct {
	Field string
}

func (e *IncompleteError) Error() string {
	return "lead: incomplete draft: missing " + e.Field
}

// Unwrap lets errors.Is match ErrIncomplete.
func (e *IncompleteError) Unwrap() error { return ErrIncomplete }

// Repository persists submitted leads.
type Repository interface {
	CreateLead(ctx context.Context, rec Record) (int64, error)
	AttachFiles(ctx context.Context, leadID int64, files []File) error
}

// Transactor is implemented by repositories that can run the create and
// attach calls atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

// Notifier delivers the admin notification.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Options tune the finalizer.
type Options struct {
	NeuroBudget string
	Now         func() time.Time
	NewRef      func() string
}

// Receipt is returned for an accepted submission.
type Receipt struct {
	LeadID int64
	Ref    string
	Record Record
}

// Finalizer validates drafts and hands records to storage and notification.
type Finalizer struct {
	repo     Repository
	notifier Notifier
	validate *validator.Validate
	opts     Options
}

type submission struct {
	Service     string `name:"service" validate:"required"`
	Task        string `name:"task" validate:"required"`
	DeadlineKey string `name:"deadline" validate:"required,oneof=urgent week not_urgent custom"`
}

// NewFinalizer builds a Finalizer. notifier may be nil.
func NewFinalizer(repo Repository, notifier Notifier, opts Options) *Finalizer {
	if opts.NeuroBudget == "" {
		opts.NeuroBudget = DefaultNeuroBudget
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRef == nil {
		opts.NewRef = uuid.NewString
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("name")
	})
	return &Finalizer{repo: repo, notifier: notifier, validate: v, opts: opts}
}

// Build validates the draft and assembles the record without storing it.
func (f *Finalizer) Build(d Draft, who Identity) (Record, error) {
	if d.Model3D != nil {
		if d.Model3D.File == nil {
			return Record{}, &IncompleteError{Field: FieldFile}
		}
		if strings.TrimSpace(d.Model3D.Description) == "" {
			return Record{}, &IncompleteError{Field: FieldDescription}
		}
	}

	sub := submission{
		Service:     strings.TrimSpace(d.Service),
		Task:        strings.TrimSpace(d.Task()),
		DeadlineKey: deadline.Strip(d.Deadline.Key),
	}
	if err := f.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Record{}, &IncompleteError{Field: verrs[0].Field()}
		}
		return Record{}, fmt.Errorf("validate draft: %w", err)
	}

	files := d.Files()
	task := sub.Task
	if d.Restoration != nil {
		task = "Type: " + orDash(string(d.Restoration.Type)) + "\n" + task
	}
	fullName := strings.TrimSpace(who.FullName)
	if fullName == "" {
		fullName = DefaultFullName
	}
	rec := Record{
		Ref:              f.opts.NewRef(),
		TelegramUserID:   who.UserID,
		TelegramUsername: strings.TrimPrefix(strings.TrimSpace(who.Username), "@"),
		FullName:         fullName,
		ServiceID:        d.ServiceID,
		Service:          sub.Service,
		Branch:           d.Branch,
		Task:             task,
		Deadline:         deadline.Normalize(d.Deadline.Key, d.Deadline.CustomText),
		Contact:          orDash(d.Contact),
		Extra:            extraFor(d, files),
		Files:            files,
		CreatedAt:        f.opts.Now().UTC(),
	}
	if d.Branch == catalog.BranchNeuro {
		rec.Budget = f.opts.NeuroBudget
	}
	return rec, nil
}

// Submit stores the lead, attaches its files and notifies the admin.
// Files are attached only after the lead row exists. Notification failures
// are logged and do not fail the submission.
func (f *Finalizer) Submit(ctx context.Context, d Draft, who Identity) (Receipt, error) {
	start := time.Now()
	rec, err := f.Build(d, who)
	if err != nil {
		return Receipt{}, err
	}

	store := func(repo Repository) error {
		id, err := repo.CreateLead(ctx, rec)
		if err != nil {
			return fmt.Errorf("create lead: %w", err)
		}
		rec.ID = id
		if len(rec.Files) == 0 {
			return nil
		}
		if err := repo.AttachFiles(ctx, id, rec.Files); err != nil {
			return fmt.Errorf("attach files to lead %d: %w", id, err)
		}
		return nil
	}
	if tx, ok := f.repo.(Transactor); ok {
		err = tx.WithinTx(ctx, store)
	} else {
		err = store(f.repo)
	}
	if err != nil {
		logger.Error(ctx, "leads", "lead.store",
			slog.String("status", "fail"),
			slog.String("service_id", rec.ServiceID),
			slog.String("err", err.Error()),
		)
		return Receipt{}, err
	}

	if f.notifier != nil {
		if nerr := f.notifier.Notify(ctx, rec.AdminText()); nerr != nil {
			logger.Warn(ctx, "leads", "lead.notify",
				slog.String("status", "fail"),
				slog.Int64("lead_id", rec.ID),
				slog.String("err", nerr.Error()),
			)
		}
	}

	logger.Info(ctx, "leads", "lead.submitted",
		slog.String("status", "ok"),
		slog.Int64("lead_id", rec.ID),
		slog.String("service_id", rec.ServiceID),
		slog.Int("files", len(rec.Files)),
		slog.Duration("duration", logger.Took(start)),
	)
	return Receipt{LeadID: rec.ID, Ref: rec.Ref, Record: rec}, nil
}
