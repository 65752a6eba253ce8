// Package registry accumulates handles acquired during a unit of work and
// releases all of them when the unit of work ends, most recent first.
//
// Typical use registers each resource right after acquiring it and closes
// the registry once on every exit path:
//
//	reg := registry.New()
//	defer reg.CloseQuietly()
//
//	conn, err := db.Conn(ctx)
//	if err != nil {
//		return err
//	}
//	reg.RegisterConn(conn)
//
// A Registry is meant to be used from a single goroutine and provides no
// synchronization.
package registry

import (
	"io"
	"log/slog"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/guileen/closereg/config"
	"github.com/guileen/closereg/logger"
)

// Category names the kind of resource behind a release action.
type Category string

const (
	CategoryCloser     Category = "closer"
	CategoryConnection Category = "connection"
	CategoryStatement  Category = "statement"
	CategoryCursor     Category = "cursor"
	CategorySnapshot   Category = "snapshot"
	CategoryBatch      Category = "batch"
)

// ReleaseAction releases exactly one registered resource.
type ReleaseAction interface {
	Category() Category
	Release() error
}

// action adapts a category specific close operation to ReleaseAction.
type action struct {
	category Category
	name     string
	release  func() error
	log      *slog.Logger
}

func (a *action) Category() Category {
	return a.category
}

func (a *action) Release() error {
	if err := a.release(); err != nil {
		a.log.Info("unable to close "+a.name, logger.Operation("release"), logger.ErrorField(err))
		return newReleaseError(a.category, "close "+a.name, err)
	}
	return nil
}

// stack holds pending actions. It is kept apart from Registry so the leak
// report can observe it after the Registry itself is unreachable.
type stack struct {
	actions []ReleaseAction
}

func (s *stack) push(a ReleaseAction) {
	s.actions = append(s.actions, a)
}

func (s *stack) pop() (ReleaseAction, bool) {
	n := len(s.actions)
	if n == 0 {
		return nil, false
	}
	a := s.actions[n-1]
	s.actions[n-1] = nil
	s.actions = s.actions[:n-1]
	return a, true
}

// Registry is a LIFO collection of pending release actions.
type Registry struct {
	id      string
	log     *slog.Logger
	pending *stack
}

type options struct {
	config config.RegistryConfig
	log    *slog.Logger
	id     string
}

// Option configures a Registry built by New.
type Option func(*options)

// WithConfig overrides the default registry configuration.
func WithConfig(cfg config.RegistryConfig) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger sets the logger that receives registration and release
// diagnostics. The global logger is used when unset.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithID sets the identifier attached to every log record. A random UUID is
// used when unset.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	o := options{config: config.DefaultRegistryConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	base := o.log
	if base == nil {
		base = logger.Logger
	}
	capacity := o.config.InitialCapacity
	if capacity < 0 {
		capacity = 0
	}

	r := &Registry{
		id:      o.id,
		log:     base.With(logger.Component("registry"), logger.String("registry_id", o.id)),
		pending: &stack{actions: make([]ReleaseAction, 0, capacity)},
	}
	if o.config.LeakCheck {
		runtime.AddCleanup(r, reportLeak, leakProbe{log: r.log, pending: r.pending})
	}
	return r
}

// ID returns the identifier used in log records.
func (r *Registry) ID() string {
	return r.id
}

// Len returns the number of resources registered and not yet released.
func (r *Registry) Len() int {
	return len(r.pending.actions)
}

// RegisterAction pushes a custom release action.
func (r *Registry) RegisterAction(a ReleaseAction) {
	r.log.Debug("registering release action", logger.String("category", string(a.Category())))
	r.pending.push(a)
}

// RegisterFunc pushes release as a release action of the given category.
// name appears in log records and in the Op of a resulting ReleaseError.
func (r *Registry) RegisterFunc(category Category, name string, release func() error) {
	r.log.Debug("registering "+name, logger.String("category", string(category)))
	r.pending.push(&action{
		category: category,
		name:     name,
		release:  release,
		log:      r.log,
	})
}

// Register pushes the Close method of c and returns c unchanged.
func Register[C io.Closer](r *Registry, c C) C {
	r.RegisterFunc(CategoryCloser, "closeable", func() error {
		return c.Close()
	})
	return c
}

// Close releases pending resources in reverse order of registration. It stops
// at the first failure and returns it as a *ReleaseError; resources below the
// failed one stay registered, so a later Close resumes from there.
func (r *Registry) Close() error {
	for {
		a, ok := r.pending.pop()
		if !ok {
			return nil
		}
		if err := r.release("close", a); err != nil {
			return err
		}
	}
}

// CloseAll releases every pending resource in reverse order of registration,
// continuing past failures. The first failure is returned with later ones
// attached as secondary errors.
func (r *Registry) CloseAll() error {
	var combined error
	for {
		a, ok := r.pending.pop()
		if !ok {
			return combined
		}
		if err := r.release("close_all", a); err != nil {
			combined = errors.CombineErrors(combined, err)
		}
	}
}

// CloseQuietly calls Close and logs any failure instead of returning it.
func (r *Registry) CloseQuietly() {
	if err := r.Close(); err != nil {
		r.log.Info("an error occurred while closing quietly",
			logger.Operation("close_quietly"), logger.ErrorField(err), logger.Int("abandoned", r.Len()))
	}
}

func (r *Registry) release(op string, a ReleaseAction) error {
	err := a.Release()
	if err == nil {
		return nil
	}
	if _, ok := AsReleaseError(err); !ok {
		err = newReleaseError(a.Category(), "release "+string(a.Category()), err)
	}
	r.log.Info("unable to close something during close", logger.Operation(op),
		logger.String("category", string(a.Category())), logger.ErrorField(err))
	return err
}
