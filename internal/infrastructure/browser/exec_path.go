package browser

import (
	"errors"
	"os"
)

// ServerlessExecPath is where serverless bundles unpack chromium.
const ServerlessExecPath = "/tmp/chromium"

var ErrNoBrowser = errors.New("no chrome/chromium executable found")

var localCandidates = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// ExecResolver picks the browser binary. Env and Exists are swappable for tests.
type ExecResolver struct {
	ExplicitPath string
	Env          func(string) string
	Exists       func(string) bool
}

func NewExecResolver(explicitPath string) ExecResolver {
	return ExecResolver{
		ExplicitPath: explicitPath,
		Env:          os.Getenv,
		Exists: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		},
	}
}

func (r ExecResolver) Resolve() (string, error) {
	if r.ExplicitPath != "" {
		return r.ExplicitPath, nil
	}
	if r.Env("AWS_LAMBDA_FUNCTION_NAME") != "" || r.Env("VERCEL") != "" {
		return ServerlessExecPath, nil
	}
	for _, candidate := range localCandidates {
		if r.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", ErrNoBrowser
}
