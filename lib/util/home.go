package util

import "os"

// UserHome returns the directory the default configuration lives under.
// It tries os.UserHomeDir, then $HOME and %USERPROFILE%, and finally the
// working directory so the daemon still starts in bare containers.
func UserHome() string {
	home, err := os.UserHomeDir()
	if err == nil {
		return home
	}
	for _, env := range []string{"HOME", "USERPROFILE"} {
		if dir := os.Getenv(env); dir != "" {
			log.WithError(err).WithField("env", env).Warn("os.UserHomeDir failed, using environment")
			return dir
		}
	}
	if wd, wdErr := os.Getwd(); wdErr == nil {
		log.WithError(err).Warn("no home directory, using working directory")
		return wd
	}
	panic("go-icp: unable to determine home directory; set $HOME")
}
