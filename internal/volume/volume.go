// Package volume adjusts the output volume through external mixer
// commands.
package volume

import (
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
)

// StepSize is the volume change applied by a single up or down step.
const StepSize = 10

// Manager controls the output volume on a 0 to 100 scale.
type Manager interface {
	// Available reports whether volume control works at all.
	Available() bool

	// Get returns the current volume.
	Get() (int, error)

	// Set changes the volume. Out of range levels are clamped.
	Set(level int) error
}

// Unavailable is the volume manager used when no mixer is configured.
type Unavailable struct{}

func (Unavailable) Available() bool   { return false }
func (Unavailable) Get() (int, error) { return 0, fmt.Errorf("no mixer configured") }
func (Unavailable) Set(int) error     { return fmt.Errorf("no mixer configured") }

// MixerCmd drives an external mixer program. The get command must print
// the current volume on stdout; the set command gets the level appended
// as its last argument.
type MixerCmd struct {
	getCmd string
	setCmd string
}

// NewMixerCmd creates a mixer-command volume manager.
func NewMixerCmd(getCmd, setCmd string) *MixerCmd {
	return &MixerCmd{getCmd: getCmd, setCmd: setCmd}
}

func (m *MixerCmd) Available() bool { return true }

func (m *MixerCmd) Get() (int, error) {
	args := strings.Fields(m.getCmd)
	if len(args) == 0 {
		return 0, fmt.Errorf("empty mixer get command")
	}
	out, err := exec.Command(args[0], args[1:]...).Output()
	if err != nil {
		return 0, fmt.Errorf("mixer get: %w", err)
	}
	level, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("mixer get: bad output %q", strings.TrimSpace(string(out)))
	}
	return clamp(level), nil
}

func (m *MixerCmd) Set(level int) error {
	args := strings.Fields(m.setCmd)
	if len(args) == 0 {
		return fmt.Errorf("empty mixer set command")
	}
	args = append(args, strconv.Itoa(clamp(level)))
	if err := exec.Command(args[0], args[1:]...).Run(); err != nil {
		return fmt.Errorf("mixer set: %w", err)
	}
	log.Printf("[VOLUME] Volume set to %d", clamp(level))
	return nil
}

func clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
