package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/kubedash/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 30 * time.Second
	defaultMaxRetries  = 0
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second
)

var (
	// ErrAuthentication indicates the remote host rejected the credentials.
	ErrAuthentication = errors.New("ssh authentication failed")

	// ErrTransport indicates the remote host could not be reached or the
	// connection failed mid-command.
	ErrTransport = errors.New("ssh transport error")
)

// Config holds SSH client configuration.
type Config struct {
	Host string
	Port int
	User string

	// Password and PrivateKey are alternatives; at least one is required.
	// When both are set, the key is offered first.
	Password   string
	PrivateKey []byte

	// DialTimeout bounds the TCP connect plus SSH handshake.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// MaxRetries is the number of extra dial attempts on transport errors.
	// Authentication failures are never retried. Zero means a single attempt.
	MaxRetries int

	// RetryDelay is the initial delay between dial attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback
}

// Client dials sessions to one host. It validates the configuration and
// parses the private key once during construction.
type Client struct {
	config *Config
	auth   []ssh.AuthMethod
}

// NewClient validates cfg and returns a Client. cfg is not mutated.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if cfg.Password == "" && len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config requires a password or private key")
	}

	configCopy := *cfg
	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.MaxRetries < 0 {
		configCopy.MaxRetries = defaultMaxRetries
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // bootstrap hosts are addressed by IP
	}

	var auth []ssh.AuthMethod
	if len(configCopy.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if configCopy.Password != "" {
		password := configCopy.Password
		auth = append(auth,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	return &Client{config: &configCopy, auth: auth}, nil
}

// Address returns host:port of the remote host.
func (c *Client) Address() string {
	return net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
}

// Connect opens an authenticated session. The caller owns the session and
// must Close it.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	clientConfig := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            c.auth,
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := c.Address()
	var client *ssh.Client

	err := retry.Do(ctx, func() error {
		var dialErr error
		client, dialErr = c.dial(ctx, addr, clientConfig)
		if dialErr != nil && errors.Is(dialErr, ErrAuthentication) {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(c.config.MaxRetries),
		retry.WithInitialDelay(c.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)
	if err != nil {
		if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrTransport) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, addr, err)
	}

	return &Session{client: client, host: c.config.Host}, nil
}

// dial connects and performs the handshake, honouring ctx during the TCP
// connect and DialTimeout during the handshake.
func (c *Client) dial(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := &net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, addr, err)
	}

	_ = conn.SetDeadline(time.Now().Add(c.config.DialTimeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %s@%s: %w", ErrAuthentication, cfg.User, addr, err)
		}
		return nil, fmt.Errorf("%w: handshake with %s: %w", ErrTransport, addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// isAuthError recognises the handshake failure x/crypto/ssh reports when no
// offered method was accepted. The library has no typed error for it.
func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// Result is the outcome of one remote command.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Succeeded reports a zero exit status.
func (r Result) Succeeded() bool {
	return r.ExitStatus == 0
}

// Session is one authenticated connection. It is not safe to Exec after
// Close, and must not be shared across unrelated operations.
type Session struct {
	client    *ssh.Client
	host      string
	closeOnce sync.Once
	closeErr  error
}

// Exec runs command in a new channel. A non-zero exit status is reported in
// Result, not as an error; errors wrap ErrTransport or the context error.
func (s *Session) Exec(ctx context.Context, command string) (Result, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("%w: open channel on %s: %w", ErrTransport, s.host, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return Result{}, ctx.Err()
	case err = <-done:
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitStatus = exitErr.ExitStatus()
		return res, nil
	}
	return res, fmt.Errorf("%w: run on %s: %w", ErrTransport, s.host, err)
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}
