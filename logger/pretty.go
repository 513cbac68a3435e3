package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // static palette
var (
	timeColor = color.New(color.Faint, color.FgHiBlack)
	nameColor = color.New(color.FgHiBlack)
	keyColor  = color.New(color.FgCyan)
	textColor = color.New(color.FgWhite)
	dimColor  = color.New(color.Faint)

	levelPalette = map[zapcore.Level]*color.Color{
		zapcore.DebugLevel:  color.New(color.Bold, color.FgBlue),
		zapcore.InfoLevel:   color.New(color.Bold, color.FgGreen),
		zapcore.WarnLevel:   color.New(color.Bold, color.FgYellow),
		zapcore.ErrorLevel:  color.New(color.Bold, color.FgRed),
		zapcore.DPanicLevel: color.New(color.Bold, color.FgHiRed),
		zapcore.PanicLevel:  color.New(color.Bold, color.FgHiRed),
		zapcore.FatalLevel:  color.New(color.Bold, color.FgMagenta),
	}
)

// prettyEncoder renders zap's JSON output as a colored header line followed
// by the indented structured fields.
type prettyEncoder struct {
	zapcore.Encoder
}

func newPrettyLogger(cfg *zap.Config) *zap.Logger {
	enc := &prettyEncoder{Encoder: zapcore.NewJSONEncoder(cfg.EncoderConfig)}
	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), cfg.Level)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(os.Stderr)))
}

// Clone keeps derived loggers wrapped.
func (e *prettyEncoder) Clone() zapcore.Encoder {
	return &prettyEncoder{Encoder: e.Encoder.Clone()}
}

func (e *prettyEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}

	raw := append([]byte(nil), buf.Bytes()...)
	buf.Reset()

	var payload map[string]any
	if json.Unmarshal(bytes.TrimSpace(raw), &payload) != nil {
		// not JSON, emit untouched
		_, _ = buf.Write(raw)
		return buf, nil
	}

	buf.AppendString(header(entry))
	for _, k := range metaKeys(payload) {
		v, mErr := json.MarshalIndent(payload[k], "  ", "  ")
		if mErr != nil {
			continue
		}
		buf.AppendString("  " + keyColor.Sprint(k) + ": " + dimColor.Sprint(string(v)) + "\n")
	}
	return buf, nil
}

func header(entry zapcore.Entry) string {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	level, ok := levelPalette[entry.Level]
	if !ok {
		level = textColor
	}

	var b strings.Builder
	b.WriteString(timeColor.Sprint("["+ts.Format(time.DateTime)+"]") + " ")
	b.WriteString(level.Sprint(entry.Level.CapitalString()))
	if entry.LoggerName != "" {
		b.WriteString(" " + nameColor.Sprint(entry.LoggerName))
	}
	if entry.Message != "" {
		b.WriteString(" " + textColor.Sprint(entry.Message))
	}
	b.WriteByte('\n')
	return b.String()
}

func metaKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		switch k {
		case timeKey, levelKey, messageKey, nameKey:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
