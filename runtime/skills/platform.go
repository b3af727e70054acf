package skills

import (
	"regexp"
	"runtime"
)

// shellWrap turns a skill's command-handler string into an argv, wrapped
// in the platform shell per spec §4.3: "sh -c" on Unix, "cmd /C" on
// Windows. An empty command string produces an empty argv, which the hook
// dispatcher treats as "silently skip".
func shellWrap(command string) []string {
	if command == "" {
		return nil
	}
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}

func compileRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}
