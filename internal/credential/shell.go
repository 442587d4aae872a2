package credential

import (
	"context"
	"strings"
	"time"

	"github.com/imamik/kubedash/internal/platform/ssh"
)

// Shell runs commands on the bootstrap host.
type Shell interface {
	Exec(ctx context.Context, command string) (ssh.Result, error)
	Close() error
}

// Dialer opens a Shell.
type Dialer interface {
	Dial(ctx context.Context, access SSHAccess) (Shell, error)
}

// SSHDialer opens shells with golang.org/x/crypto/ssh.
type SSHDialer struct {
	DialTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// Dial connects and authenticates. Errors wrap ssh.ErrAuthentication or
// ssh.ErrTransport.
func (d SSHDialer) Dial(ctx context.Context, access SSHAccess) (Shell, error) {
	client, err := ssh.NewClient(&ssh.Config{
		Host:        access.Host,
		Port:        access.Port,
		User:        access.User,
		Password:    access.Password,
		PrivateKey:  access.PrivateKey,
		DialTimeout: d.DialTimeout,
		MaxRetries:  d.MaxRetries,
		RetryDelay:  d.RetryDelay,
	})
	if err != nil {
		return nil, err
	}

	session, err := client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_.:/=@", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// command joins args into a shell command line, quoting where needed.
func command(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}
