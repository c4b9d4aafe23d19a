package domain

import "fmt"

// CommandKind classifies what the user asked for, independent of
// whether it came from voice, a gesture, or the keyboard.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdNextStep
	CmdPrevStep
	CmdRepeat
	CmdReadStep
	CmdReadIngredients
	CmdPause
	CmdResume
	CmdSetTimer
	CmdStopTimer
	CmdJumpTo
	CmdToggleIngredient
	CmdToggleStep
	CmdOpenIngredients
	CmdToggleVoice
	CmdToggleFullscreen
	CmdOpenSettings
	CmdExit
)

// commandNames maps snake_case names to CommandKind values.
var commandNames = map[string]CommandKind{
	"next_step":         CmdNextStep,
	"prev_step":         CmdPrevStep,
	"repeat":            CmdRepeat,
	"read_step":         CmdReadStep,
	"read_ingredients":  CmdReadIngredients,
	"pause":             CmdPause,
	"resume":            CmdResume,
	"set_timer":         CmdSetTimer,
	"stop_timer":        CmdStopTimer,
	"jump_to":           CmdJumpTo,
	"toggle_ingredient": CmdToggleIngredient,
	"toggle_step":       CmdToggleStep,
	"open_ingredients":  CmdOpenIngredients,
	"toggle_voice":      CmdToggleVoice,
	"toggle_fullscreen": CmdToggleFullscreen,
	"open_settings":     CmdOpenSettings,
	"exit":              CmdExit,
}

// String returns the snake_case name of the kind.
func (k CommandKind) String() string {
	for name, kind := range commandNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// CommandKindFromString converts a snake_case name to a CommandKind.
// Returns CmdUnknown for unrecognized names.
func CommandKindFromString(name string) CommandKind {
	if k, ok := commandNames[name]; ok {
		return k
	}
	return CmdUnknown
}

// Command is the closed set of requests both input modalities produce.
// The unexported method keeps the set sealed to this package.
type Command interface {
	Kind() CommandKind
	command()
}

type (
	NextStep         struct{}
	PrevStep         struct{}
	RepeatStep       struct{}
	ReadStep         struct{}
	ReadIngredients  struct{}
	PauseSpeech      struct{}
	ResumeSpeech     struct{}
	StopTimer        struct{}
	OpenIngredients  struct{}
	ToggleVoice      struct{}
	ToggleFullscreen struct{}
	OpenSettings     struct{}
	Exit             struct{}

	// SetTimer starts a countdown bound to the current step.
	SetTimer struct {
		Seconds int
		Label   string
	}
	// JumpTo moves straight to a step.
	JumpTo struct{ Step int }
	// ToggleIngredient flips the checked state of an ingredient line.
	ToggleIngredient struct{ Index int }
	// ToggleStep flips the completed state of a step.
	ToggleStep struct{ Index int }
)

func (NextStep) Kind() CommandKind         { return CmdNextStep }
func (PrevStep) Kind() CommandKind         { return CmdPrevStep }
func (RepeatStep) Kind() CommandKind       { return CmdRepeat }
func (ReadStep) Kind() CommandKind         { return CmdReadStep }
func (ReadIngredients) Kind() CommandKind  { return CmdReadIngredients }
func (PauseSpeech) Kind() CommandKind      { return CmdPause }
func (ResumeSpeech) Kind() CommandKind     { return CmdResume }
func (SetTimer) Kind() CommandKind         { return CmdSetTimer }
func (StopTimer) Kind() CommandKind        { return CmdStopTimer }
func (JumpTo) Kind() CommandKind           { return CmdJumpTo }
func (ToggleIngredient) Kind() CommandKind { return CmdToggleIngredient }
func (ToggleStep) Kind() CommandKind       { return CmdToggleStep }
func (OpenIngredients) Kind() CommandKind  { return CmdOpenIngredients }
func (ToggleVoice) Kind() CommandKind      { return CmdToggleVoice }
func (ToggleFullscreen) Kind() CommandKind { return CmdToggleFullscreen }
func (OpenSettings) Kind() CommandKind     { return CmdOpenSettings }
func (Exit) Kind() CommandKind             { return CmdExit }

func (NextStep) command()         {}
func (PrevStep) command()         {}
func (RepeatStep) command()       {}
func (ReadStep) command()         {}
func (ReadIngredients) command()  {}
func (PauseSpeech) command()      {}
func (ResumeSpeech) command()     {}
func (SetTimer) command()         {}
func (StopTimer) command()        {}
func (JumpTo) command()           {}
func (ToggleIngredient) command() {}
func (ToggleStep) command()       {}
func (OpenIngredients) command()  {}
func (ToggleVoice) command()      {}
func (ToggleFullscreen) command() {}
func (OpenSettings) command()     {}
func (Exit) command()             {}

// NewCommand builds the parameterless command for a kind. Kinds that
// carry arguments take them from arg (seconds for SetTimer, an index
// for JumpTo and the toggles).
func NewCommand(kind CommandKind, arg int) (Command, error) {
	switch kind {
	case CmdNextStep:
		return NextStep{}, nil
	case CmdPrevStep:
		return PrevStep{}, nil
	case CmdRepeat:
		return RepeatStep{}, nil
	case CmdReadStep:
		return ReadStep{}, nil
	case CmdReadIngredients:
		return ReadIngredients{}, nil
	case CmdPause:
		return PauseSpeech{}, nil
	case CmdResume:
		return ResumeSpeech{}, nil
	case CmdSetTimer:
		if arg <= 0 {
			return nil, ErrInvalidDuration
		}
		return SetTimer{Seconds: arg}, nil
	case CmdStopTimer:
		return StopTimer{}, nil
	case CmdJumpTo:
		return JumpTo{Step: arg}, nil
	case CmdToggleIngredient:
		return ToggleIngredient{Index: arg}, nil
	case CmdToggleStep:
		return ToggleStep{Index: arg}, nil
	case CmdOpenIngredients:
		return OpenIngredients{}, nil
	case CmdToggleVoice:
		return ToggleVoice{}, nil
	case CmdToggleFullscreen:
		return ToggleFullscreen{}, nil
	case CmdOpenSettings:
		return OpenSettings{}, nil
	case CmdExit:
		return Exit{}, nil
	}
	return nil, fmt.Errorf("command %q: %w", kind, ErrUnknownCommand)
}
