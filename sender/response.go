package sender

import (
	"fmt"
	"strings"
)

// Outcome is the classification of one device response.
type Outcome uint8

const (
	// Acknowledged means the device accepted the command.
	Acknowledged Outcome = iota + 1
	// Rejected means the device reported an error for the command.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Acknowledged:
		return "acknowledged"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ErrorPrefix marks a rejected response. Matching is case-sensitive.
const ErrorPrefix = "Error"

// Classifier maps one decoded, trimmed response line to an Outcome.
type Classifier interface {
	Classify(line string) Outcome
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(line string) Outcome

func (f ClassifierFunc) Classify(line string) Outcome { return f(line) }

// DefaultClassifier rejects lines starting with ErrorPrefix and acknowledges
// everything else, empty and unrecognized lines included.
var DefaultClassifier Classifier = ClassifierFunc(Classify)

// Classify implements the default classification policy.
func Classify(line string) Outcome {
	if strings.HasPrefix(line, ErrorPrefix) {
		return Rejected
	}

	return Acknowledged
}

// StrictClassifier is DefaultClassifier except that an empty line, which is what
// a read timeout yields, is rejected and so consumes retry budget.
var StrictClassifier Classifier = ClassifierFunc(ClassifyStrict)

// ClassifyStrict implements the strict classification policy.
func ClassifyStrict(line string) Outcome {
	if line == "" {
		return Rejected
	}

	return Classify(line)
}

// ParseClassifier maps a policy name, "default" or "strict", to its Classifier.
func ParseClassifier(name string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultClassifier, nil
	case "strict":
		return StrictClassifier, nil
	default:
		return nil, fmt.Errorf("sender: unknown classifier %q", name)
	}
}
