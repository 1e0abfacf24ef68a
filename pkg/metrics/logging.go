package metrics

import (
	"bytes"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// CustomNewRelicLogFormatter is a logrus.Formatter that forwards every entry to New
// Relic, including its fields, and decorates the locally formatted line with
// New Relic linking metadata.
type CustomNewRelicLogFormatter struct {
	app       *newrelic.Application
	formatter logrus.Formatter
}

// NewCustomNewRelicLogFormatter wraps formatter, which formats the local line
func NewCustomNewRelicLogFormatter(app *newrelic.Application, formatter logrus.Formatter) CustomNewRelicLogFormatter {
	return CustomNewRelicLogFormatter{
		app:       app,
		formatter: formatter,
	}
}

// Format implements logrus.Formatter
func (f CustomNewRelicLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	local, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}
	b := bytes.NewBuffer(bytes.TrimRight(local, "\n"))

	data := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  forwardedMessage(e),
	}

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	if txn != nil {
		txn.RecordLog(data)
		err = newrelic.EnrichLog(b, newrelic.FromTxn(txn))
	} else {
		f.app.RecordLog(data)
		err = newrelic.EnrichLog(b, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// forwardedMessage folds the entry's fields into the message, since New Relic
// log data carries no attributes.
func forwardedMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errorString := "<nil>"
	fields := make(map[string]interface{}, len(e.Data))
	for k, v := range e.Data {
		if k != logrus.ErrorKey {
			fields[k] = v
			continue
		}
		if err, ok := v.(error); ok {
			errorString = fmt.Sprintf("%q", err.Error())
		}
	}

	encoded, err := sonic.Marshal(fields)
	if err != nil {
		return e.Message
	}
	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errorString, encoded)
}
