package utils

import (
	"fmt"
	"os"
	"strings"
)

// LogLevel selects how much of the pipeline's progress is printed
type LogLevel int

const (
	// LevelQuiet prints errors only, for scripted or batch runs
	LevelQuiet LogLevel = iota
	// LevelNormal prints stage transitions and the request outcome
	LevelNormal
	// LevelVerbose adds per-scene and per-clause detail (plan sources,
	// pause corrections, retries)
	LevelVerbose
	// LevelDebug adds everything else, including provider call detail
	LevelDebug
)

var (
	// CurrentLogLevel is the global log level setting
	CurrentLogLevel LogLevel = LevelNormal
)

// SetLogLevel sets the global logging level
func SetLogLevel(level LogLevel) {
	CurrentLogLevel = level
}

// LogLevelFromString converts a string level name to LogLevel
func LogLevelFromString(level string) LogLevel {
	switch strings.ToLower(level) {
	case "quiet", "q":
		return LevelQuiet
	case "normal", "n":
		return LevelNormal
	case "verbose", "v":
		return LevelVerbose
	case "debug", "d":
		return LevelDebug
	default:
		return LevelNormal
	}
}

// StageTag formats a pipeline stage name as the bracketed, highlighted
// prefix used on stage transition lines.
func StageTag(stage string) string {
	return Highlight("[" + stage + "]")
}

// LogStage logs a pipeline stage transition at Normal+ level. Long runs
// cycle through the same stages once per scene, so the stage prefix keeps
// the output scannable.
func LogStage(stage string, format string, args ...interface{}) {
	if CurrentLogLevel >= LevelNormal {
		fmt.Printf("%s %s\n", StageTag(stage), Info(fmt.Sprintf(format, args...)))
	}
}

// LogError logs an error message (always shown)
func LogError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s\n", Error(fmt.Sprintf(format, args...)))
}

// LogInfo logs an informational message at Normal+ level
func LogInfo(format string, args ...interface{}) {
	if CurrentLogLevel >= LevelNormal {
		fmt.Printf("%s\n", Info(fmt.Sprintf(format, args...)))
	}
}

// LogSuccess logs a success message at Normal+ level
func LogSuccess(format string, args ...interface{}) {
	if CurrentLogLevel >= LevelNormal {
		fmt.Printf("%s\n", Success(fmt.Sprintf(format, args...)))
	}
}

// LogVerbose logs a message at Verbose+ level, indented under the current
// stage line
func LogVerbose(format string, args ...interface{}) {
	if CurrentLogLevel >= LevelVerbose {
		fmt.Printf("\t%s\n", Info(fmt.Sprintf(format, args...)))
	}
}

// LogDebug logs a debug message at Debug level
func LogDebug(format string, args ...interface{}) {
	if CurrentLogLevel >= LevelDebug {
		fmt.Printf("\t%s\n", Debug(fmt.Sprintf(format, args...)))
	}
}

// LogWarning logs a warning message at Normal+ level. Pause corrections
// that cannot be fully applied surface here rather than failing the run.
func LogWarning(format string, args ...interface{}) {
	if CurrentLogLevel >= LevelNormal {
		fmt.Printf("%s\n", Warning(fmt.Sprintf(format, args...)))
	}
}
