package enums

// declaration of the string enums accepted in
// configuration files, parsed once at construction

import (
	"fmt"

	"github.com/Robogera/trackassign/pkg/errs"
	"github.com/orsinium-labs/enum"
)

type AgeMode enum.Member[string]

var (
	am = enum.NewBuilder[string, AgeMode]()

	AgeModeAscendant          = am.Add(AgeMode{"ascendant"})
	AgeModeAll                = am.Add(AgeMode{"all"})
	AgeModeConfirmedAscendant = am.Add(AgeMode{"confirmed-ascendant"})
	AgeModeConfirmedAll       = am.Add(AgeMode{"confirmed-all"})

	AgeModes = am.Enum()
)

type SolverKind enum.Member[string]

var (
	sk = enum.NewBuilder[string, SolverKind]()

	SolverHungarian = sk.Add(SolverKind{"hungarian"})
	SolverMunkres   = sk.Add(SolverKind{"munkres"})

	SolverKinds = sk.Enum()
)

type LoggingLevel enum.Member[string]

var (
	ll = enum.NewBuilder[string, LoggingLevel]()

	LoggingLevelDebug = ll.Add(LoggingLevel{"debug"})
	LoggingLevelInfo  = ll.Add(LoggingLevel{"info"})
	LoggingLevelWarn  = ll.Add(LoggingLevel{"warn"})
	LoggingLevelError = ll.Add(LoggingLevel{"error"})

	LoggingLevels = ll.Enum()
)

func ParseAgeMode(value string) (AgeMode, error) {
	mode := AgeModes.Parse(value)
	if mode == nil {
		return AgeMode{}, fmt.Errorf(
			"ageMode %q does not exist, expected one of %v. Error: %w",
			value, AgeModes.Values(), errs.ERR_CONFIGURATION)
	}
	return *mode, nil
}

// Empty value defaults to munkres
func ParseSolverKind(value string) (SolverKind, error) {
	if value == "" {
		return SolverMunkres, nil
	}
	kind := SolverKinds.Parse(value)
	if kind == nil {
		return SolverKind{}, fmt.Errorf(
			"Unknown solver %q, expected one of %v. Error: %w",
			value, SolverKinds.Values(), errs.ERR_CONFIGURATION)
	}
	return *kind, nil
}
