package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/m3rciful/studiobot/core/logger"
)

const component = "ledger"

// Load outcomes reported to the Recorder.
const (
	LoadOK        = "ok"
	LoadMissing   = "missing"
	LoadMalformed = "malformed"
	LoadFailed    = "error"
)

// ErrMalformed reports a document that is not a JSON object. Load treats it
// as an empty ledger; LoadStrict returns it.
var ErrMalformed = errors.New("ledger: malformed document")

// Recorder receives ledger instrumentation. Implementations must be safe
// for concurrent use.
type Recorder interface {
	ObserveLoad(outcome string, d time.Duration)
	ObserveSave(err error, d time.Duration)
	IncOperation(op string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveLoad(string, time.Duration) {}
func (nopRecorder) ObserveSave(error, time.Duration)  {}
func (nopRecorder) IncOperation(string, error)        {}

type options struct {
	clock    clockwork.Clock
	recorder Recorder
}

// Option customises a Store or Service.
type Option func(*options)

// WithClock overrides the clock used for synthesized and refreshed timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRecorder wires instrumentation.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock(), recorder: nopRecorder{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Store persists the ledger as one JSON document.
// Every call reads or writes the whole document; there is no locking.
type Store struct {
	path string
	opts options
}

// NewStore returns a Store backed by the document at path.
func NewStore(path string, opts ...Option) *Store {
	return &Store{path: path, opts: buildOptions(opts)}
}

// Path reports the document location.
func (s *Store) Path() string { return s.path }

// Load reads the ledger. An absent or malformed document yields an empty
// ledger; only other I/O failures are returned as errors. Legacy records are
// upgraded in the returned value but not written back.
func (s *Store) Load(ctx context.Context) (Ledger, error) {
	return s.load(ctx, false)
}

// LoadStrict is Load except that a malformed document fails with
// ErrMalformed instead of reading as empty.
func (s *Store) LoadStrict(ctx context.Context) (Ledger, error) {
	return s.load(ctx, true)
}

func (s *Store) load(ctx context.Context, strict bool) (Ledger, error) {
	start := time.Now()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.opts.recorder.ObserveLoad(LoadMissing, time.Since(start))
			logger.Debug(ctx, component, "ledger.load",
				slog.String("status", "skip"),
				slog.String("reason", LoadMissing),
				slog.String("path", s.path),
			)
			return Ledger{}, nil
		}
		s.opts.recorder.ObserveLoad(LoadFailed, time.Since(start))
		logger.Error(ctx, component, "ledger.load",
			slog.String("status", "fail"),
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("ledger: read %s: %w", s.path, err)
	}

	led, report, err := decodeDocument(data, s.opts.clock.Now())
	if err != nil {
		s.opts.recorder.ObserveLoad(LoadMalformed, time.Since(start))
		logger.Warn(ctx, component, "ledger.load",
			slog.String("status", "fail"),
			slog.String("reason", LoadMalformed),
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		if strict {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
		}
		return Ledger{}, nil
	}
	s.opts.recorder.ObserveLoad(LoadOK, time.Since(start))

	if len(report.upgraded) > 0 {
		preview, truncated := logger.SummarizeStrings(report.upgraded, 6)
		logger.Info(ctx, component, "ledger.upgrade",
			slog.Int("count", len(report.upgraded)),
			slog.String("clients_preview", preview),
			slog.Bool("clients_truncated", truncated),
		)
	}
	for name, cause := range report.skipped {
		logger.Warn(ctx, component, "ledger.skip",
			slog.String("client", logger.SanitizeLimit(name, 64)),
			slog.String("err", cause.Error()),
			slog.Bool("kept_on_save", true),
		)
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "ledger.load",
			slog.String("status", "ok"),
			slog.Int("clients", len(led)),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return led, nil
}

// Save overwrites the document with l. Entries of the current document that
// could not be decoded are written back unchanged unless l has a record of
// the same name. The write goes through a temporary file and a rename so
// readers never see a half-written document.
func (s *Store) Save(ctx context.Context, l Ledger) error {
	start := time.Now()
	err := s.write(l, s.unreadable())
	s.opts.recorder.ObserveSave(err, time.Since(start))
	if err != nil {
		logger.Error(ctx, component, "ledger.save",
			slog.String("status", "fail"),
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Debug(ctx, component, "ledger.save",
		slog.String("status", "ok"),
		slog.Int("clients", len(l)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// EnsureExists creates an empty document when none exists and reports
// whether it did so.
func (s *Store) EnsureExists(ctx context.Context) (bool, error) {
	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("ledger: stat %s: %w", s.path, err)
	}
	if err := s.write(Ledger{}, nil); err != nil {
		return false, err
	}
	logger.Info(ctx, component, "ledger.ensure",
		slog.String("status", "ok"),
		slog.String("path", s.path),
		slog.Bool("created", true),
	)
	return true, nil
}

// unreadable returns the raw entries of the current document that decoding
// skips.
func (s *Store) unreadable() map[string]json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	_, report, err := decodeDocument(data, s.opts.clock.Now())
	if err != nil {
		return nil
	}
	return report.raw
}

func (s *Store) write(l Ledger, keep map[string]json.RawMessage) error {
	data, err := encodeDocument(l, keep)
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ledger: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("ledger: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("ledger: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("ledger: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("ledger: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("ledger: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("ledger: replace %s: %w", s.path, err)
	}
	return nil
}

// encodeDocument renders the ledger with four-space indentation and without
// escaping non-ASCII or HTML characters. Entries in keep are written as they
// are unless l has a record of the same name.
func encodeDocument(l Ledger, keep map[string]json.RawMessage) ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(l)+len(keep))
	for name, raw := range keep {
		doc[name] = raw
	}
	for name, rec := range l {
		raw, err := marshalNoEscape(rec)
		if err != nil {
			return nil, fmt.Errorf("client %q: %w", name, err)
		}
		doc[name] = raw
	}
	return marshalDocument(doc)
}

func marshalNoEscape(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func marshalDocument(doc map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type decodeReport struct {
	upgraded []string
	skipped  map[string]error
	raw      map[string]json.RawMessage
}

func (r *decodeReport) skip(name string, value json.RawMessage, err error) {
	r.skipped[name] = err
	r.raw[name] = append(json.RawMessage(nil), value...)
}

// decodeDocument parses a ledger document. Bare integers are legacy
// sessions-only records and get now as their payment date; so do object
// records that lack one. Entries of any other shape, including fractional or
// out-of-range numbers, are skipped and reported with their raw value.
func decodeDocument(data []byte, now time.Time) (Ledger, decodeReport, error) {
	report := decodeReport{
		skipped: map[string]error{},
		raw:     map[string]json.RawMessage{},
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Ledger{}, report, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, report, err
	}

	synthesized := NewTimestamp(now)
	led := make(Ledger, len(raw))
	for name, value := range raw {
		value = bytes.TrimSpace(value)
		if len(value) == 0 {
			continue
		}
		switch c := value[0]; {
		case c == '{':
			var rec Record
			if err := json.Unmarshal(value, &rec); err != nil {
				report.skip(name, value, err)
				continue
			}
			if rec.LastPaymentDate.IsZero() {
				rec.LastPaymentDate = synthesized
				report.upgraded = append(report.upgraded, name)
			}
			if rec.Sessions < 0 {
				rec.Sessions = 0
			}
			led[name] = rec
		case c == '-' || (c >= '0' && c <= '9'):
			sessions, err := strconv.Atoi(string(value))
			if err != nil {
				report.skip(name, value, fmt.Errorf("legacy count %s is not a whole number in range", string(value)))
				continue
			}
			led[name] = Record{
				Sessions:        max(sessions, 0),
				LastPaymentDate: synthesized,
			}
			report.upgraded = append(report.upgraded, name)
		default:
			report.skip(name, value, fmt.Errorf("unsupported record shape: %s", string(value)))
		}
	}
	SortNames(report.upgraded)
	return led, report, nil
}
