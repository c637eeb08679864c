// Package traced wraps a storage.Store with OpenTelemetry spans, one span
// per operation.
package traced

import (
	"context"
	"iter"

	"github.com/poiesic/localstore/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/poiesic/localstore/storage/traced"

var (
	attrBackend = attribute.Key("localstore.backend")
	attrKey     = attribute.Key("localstore.key")
	attrFound   = attribute.Key("localstore.found")
	attrCount   = attribute.Key("localstore.count")
)

// Store decorates a storage.Store with tracing.
type Store struct {
	next    storage.Store
	tracer  trace.Tracer
	backend string
}

var _ storage.Store = (*Store)(nil)
var _ storage.Named = (*Store)(nil)

// Option configures a Store.
type Option func(*config)

type config struct {
	provider trace.TracerProvider
}

// WithTracerProvider sets the provider spans are created from.
// Default is the global provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) {
		c.provider = provider
	}
}

// New wraps next.
func New(next storage.Store, opts ...Option) *Store {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.provider == nil {
		cfg.provider = otel.GetTracerProvider()
	}
	return &Store{
		next:    next,
		tracer:  cfg.provider.Tracer(instrumentationName),
		backend: storage.BackendName(next),
	}
}

// BackendName reports the wrapped backend's name.
func (s *Store) BackendName() string {
	return s.backend
}

// Unwrap returns the wrapped store.
func (s *Store) Unwrap() storage.Store {
	return s.next
}

func (s *Store) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attrBackend.String(s.backend))
	return s.tracer.Start(ctx, "localstore."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Store) Size(ctx context.Context) (n int, err error) {
	ctx, span := s.start(ctx, "size")
	defer func() { end(span, err) }()

	n, err = s.next.Size(ctx)
	span.SetAttributes(attrCount.Int(n))
	return n, err
}

func (s *Store) Get(ctx context.Context, key string) (value any, err error) {
	ctx, span := s.start(ctx, "get", attrKey.String(key))
	defer func() { end(span, err) }()

	value, err = s.next.Get(ctx, key)
	span.SetAttributes(attrFound.Bool(value != nil))
	return value, err
}

func (s *Store) Set(ctx context.Context, key string, value any) (err error) {
	ctx, span := s.start(ctx, "set", attrKey.String(key))
	defer func() { end(span, err) }()

	return s.next.Set(ctx, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) (err error) {
	ctx, span := s.start(ctx, "delete", attrKey.String(key))
	defer func() { end(span, err) }()

	return s.next.Delete(ctx, key)
}

func (s *Store) Clear(ctx context.Context) (err error) {
	ctx, span := s.start(ctx, "clear")
	defer func() { end(span, err) }()

	return s.next.Clear(ctx)
}

// Keys traces the whole iteration as one span, ended when the caller stops
// ranging or the sequence is exhausted.
func (s *Store) Keys(ctx context.Context) iter.Seq2[string, error] {
	return storage.SingleUse(func(yield func(string, error) bool) {
		ctx, span := s.start(ctx, "keys")
		n := 0
		var err error
		defer func() {
			span.SetAttributes(attrCount.Int(n))
			end(span, err)
		}()

		for key, kerr := range s.next.Keys(ctx) {
			if kerr != nil {
				err = kerr
				yield("", kerr)
				return
			}
			n++
			if !yield(key, nil) {
				return
			}
		}
	})
}

func (s *Store) Has(ctx context.Context, key string) (ok bool, err error) {
	ctx, span := s.start(ctx, "has", attrKey.String(key))
	defer func() { end(span, err) }()

	ok, err = s.next.Has(ctx, key)
	span.SetAttributes(attrFound.Bool(ok))
	return ok, err
}

func (s *Store) Close() error {
	return s.next.Close()
}
