// Package fcgilog provides the structured logging conventions shared by the
// rest of this module. It never holds a package-level logger: every type
// that logs takes a logrus.FieldLogger at construction, the same way
// gaxiaowei-fast-php's service container takes one in NewContainer.
package fcgilog

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// Discard returns a logger that drops everything, the default for types
// constructed without an explicit logger.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.Out = discardWriter{}
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// RecordFields builds the standard field set attached to a per-record log
// line: request id and record type are the two things worth correlating on
// across the whole stack.
func RecordFields(requestID uint16, recordType string) logrus.Fields {
	return logrus.Fields{
		"request_id":  requestID,
		"record_type": recordType,
	}
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DumpPairs renders a name-value pair set as a compact JSON object for
// debug-level logging of Params/GetValuesResult bodies. Falls back to the
// error string if the pairs somehow don't marshal (they always do: they're
// map[string]string).
func DumpPairs(pairs map[string]string) string {
	b, err := json.Marshal(pairs)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
