package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidMaterialStatus = errors.New("models: invalid material status")

// MaterialPhase names the vocabulary a material status is expressed in.
type MaterialPhase string

const (
	PhaseLoading      MaterialPhase = "loading"
	PhaseInstallation MaterialPhase = "installation"
)

func (p MaterialPhase) Valid() bool {
	return p == PhaseLoading || p == PhaseInstallation
}

// MaterialStatus is a two-state status tagged with its phase. The wire form
// is one of loaded, not_loaded, installed, not_installed.
type MaterialStatus struct {
	Phase MaterialPhase
	Done  bool
}

func Loaded() MaterialStatus       { return MaterialStatus{Phase: PhaseLoading, Done: true} }
func NotLoaded() MaterialStatus    { return MaterialStatus{Phase: PhaseLoading} }
func Installed() MaterialStatus    { return MaterialStatus{Phase: PhaseInstallation, Done: true} }
func NotInstalled() MaterialStatus { return MaterialStatus{Phase: PhaseInstallation} }

func ParseMaterialStatus(value string) (MaterialStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "loaded":
		return Loaded(), nil
	case "not_loaded":
		return NotLoaded(), nil
	case "installed":
		return Installed(), nil
	case "not_installed":
		return NotInstalled(), nil
	default:
		return MaterialStatus{}, fmt.Errorf("%w: %q", ErrInvalidMaterialStatus, value)
	}
}

func (s MaterialStatus) String() string {
	switch s.Phase {
	case PhaseInstallation:
		if s.Done {
			return "installed"
		}
		return "not_installed"
	default:
		if s.Done {
			return "loaded"
		}
		return "not_loaded"
	}
}

// InPhase expresses s in phase p. The done position is kept:
// loaded <-> installed, not_loaded <-> not_installed.
func (s MaterialStatus) InPhase(p MaterialPhase) MaterialStatus {
	return MaterialStatus{Phase: p, Done: s.Done}
}

func (s MaterialStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *MaterialStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseMaterialStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
