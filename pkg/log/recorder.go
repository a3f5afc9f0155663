package log

import "sync"

// Level identifies the severity of a recorded entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is a single message captured by a Recorder.
type Entry struct {
	Level   Level
	Message string
	Fields  []Field
}

// Field returns the value of the named field and whether it was present.
func (e Entry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Recorder implements Logger by keeping every entry in memory.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Debug(msg string, fields ...Field) { r.record(LevelDebug, msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.record(LevelInfo, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.record(LevelWarn, msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.record(LevelError, msg, fields) }

func (r *Recorder) record(level Level, msg string, fields []Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg, Fields: append([]Field(nil), fields...)})
}

// Entries returns the recorded entries at the given level, or all entries
// when no level is given.
func (r *Recorder) Entries(levels ...Level) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(levels) == 0 {
		return append([]Entry(nil), r.entries...)
	}
	var out []Entry
	for _, e := range r.entries {
		for _, l := range levels {
			if e.Level == l {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
