package credential

import (
	"context"
	"sync"

	"github.com/imamik/kubedash/internal/cluster"
	"github.com/imamik/kubedash/internal/platform/ssh"
)

type execReply struct {
	res ssh.Result
	err error
}

// fakeShell answers commands from a script. Unscripted commands succeed
// with empty output.
type fakeShell struct {
	mu       sync.Mutex
	replies  map[string]execReply
	commands []string
	closed   int
}

func newFakeShell() *fakeShell {
	return &fakeShell{replies: map[string]execReply{}}
}

func (s *fakeShell) on(cmd string, res ssh.Result) *fakeShell {
	s.replies[cmd] = execReply{res: res}
	return s
}

func (s *fakeShell) fail(cmd string, err error) *fakeShell {
	s.replies[cmd] = execReply{err: err}
	return s
}

func (s *fakeShell) Exec(_ context.Context, cmd string) (ssh.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	r := s.replies[cmd]
	return r.res, r.err
}

func (s *fakeShell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeDialer struct {
	shell *fakeShell
	err   error
	dials []SSHAccess
}

func (d *fakeDialer) Dial(_ context.Context, access SSHAccess) (Shell, error) {
	d.dials = append(d.dials, access)
	if d.err != nil {
		return nil, d.err
	}
	return d.shell, nil
}

type fakeValidator struct {
	mu     sync.Mutex
	valid  bool
	probed []cluster.Descriptor
}

func (v *fakeValidator) Validate(_ context.Context, d cluster.Descriptor) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.probed = append(v.probed, d)
	return v.valid
}
