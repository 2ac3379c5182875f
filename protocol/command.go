package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Terminator ends every request frame.
const Terminator = '\r'

// Command is a request that can be framed for the controller.
// It's implemented by Query, General and Trajectory.
type Command interface {
	// Name returns the token the controller echoes when it accepts the command.
	Name() string
	// Frame returns the wire bytes including the terminator.
	Frame() ([]byte, error)

	echoes(reply string) bool
}

// Query is a status query.
type Query string

const (
	QueryState      Query = "state"
	QueryInputs     Query = "di"
	QueryOutputs    Query = "do"
	QuerySampleData Query = "sampledata"
)

func (q Query) Name() string { return string(q) }

func (q Query) Frame() ([]byte, error) { return encode(string(q), nil) }

// A status reply echoes the query name as the prefix of its payload frame.
func (q Query) echoes(reply string) bool {
	return reply == string(q) || strings.HasPrefix(reply, string(q)+"(")
}

// General is a one-word controller command.
type General string

const (
	PowerOn          General = "on"
	PowerOff         General = "off"
	Panic            General = "panic"
	ResetFault       General = "reset"
	OpenToolA        General = "opentool"
	CloseToolA       General = "closetool"
	OpenToolB        General = "opentoolb"
	CloseToolB       General = "closetoolb"
	SpeedUp          General = "speedup"
	SpeedDown        General = "speeddown"
	Abort            General = "abort"
	Pause            General = "pause"
	Restart          General = "restart"
	OpenLid          General = "openlid"
	CloseLid         General = "closelid"
	MagnetOn         General = "magneton"
	MagnetOff        General = "magnetoff"
	ClearBarcode     General = "clearbrcd"
	HeaterOn         General = "heateron"
	HeaterOff        General = "heateroff"
	RegulationOn     General = "regulon"
	RegulationOff    General = "reguloff"
	PhaseSepRegulOn  General = "ps_regulon"
	PhaseSepRegulOff General = "ps_reguloff"
)

func (g General) Name() string { return string(g) }

func (g General) Frame() ([]byte, error) { return encode(string(g), nil) }

func (g General) echoes(reply string) bool { return reply == string(g) }

func encode(name string, args []string) ([]byte, error) {
	if err := validateToken(name); err != nil {
		return nil, err
	}

	size := len(name) + 1
	for _, a := range args {
		if err := validateToken(a); err != nil {
			return nil, err
		}
		size += len(a) + 1
	}

	buf := make([]byte, 0, size+1)
	buf = append(buf, name...)
	if len(args) > 0 {
		buf = append(buf, '(')
		for i, a := range args {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, a...)
		}
		buf = append(buf, ')')
	}
	buf = append(buf, Terminator)

	return buf, nil
}

func validateToken(tok string) error {
	if tok == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if c <= ' ' || c > '~' || c == '(' || c == ')' || c == ',' {
			return fmt.Errorf("%w: illegal character %q in %q", ErrInvalidArgument, c, tok)
		}
	}

	return nil
}

func itoa(args []int) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strconv.Itoa(a)
	}

	return out
}
