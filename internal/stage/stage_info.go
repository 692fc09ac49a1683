package stage

import (
	"fmt"
	"os"
	"os/user"
)

// Info characterizes a running data plane stage: its name, an optional
// operator-supplied description, and identifying process/host metadata.
// It is exchanged with the control plane during the handshake (spec.md
// §4.13).
type Info struct {
	Name        string
	Opt         string
	Description string
	PID         int
	PPID        int
	Hostname    string
	LoginName   string
}

// NewInfo builds an Info for the current process, reading name/opt from
// the given environment values (normally sourced from internal/config).
func NewInfo(name, opt string) Info {
	hostname, _ := os.Hostname()
	login := ""
	if u, err := user.Current(); err == nil {
		login = u.Username
	}
	return Info{
		Name:      name,
		Opt:       opt,
		PID:       os.Getpid(),
		PPID:      os.Getppid(),
		Hostname:  hostname,
		LoginName: login,
	}
}

// String renders Info for debugging and for the handshake log line.
func (i Info) String() string {
	return fmt.Sprintf("StageInfo {%s, %s, %q, pid=%d, ppid=%d, %s, %s}",
		i.Name, i.Opt, i.Description, i.PID, i.PPID, i.Hostname, i.LoginName)
}
