package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTLSPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    TLSPolicy
		wantErr bool
	}{
		{in: "", want: TLSInsecure},
		{in: "insecure", want: TLSInsecure},
		{in: "false", want: TLSInsecure},
		{in: "VERIFY", want: TLSVerify},
		{in: "true", want: TLSVerify},
		{in: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTLSPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescriptor_Summary(t *testing.T) {
	t.Parallel()

	d := Descriptor{ID: "prod", Host: "10.0.0.5", Port: 6443, Token: "secret", TLSPolicy: TLSVerify}
	s := d.Summary()

	assert.Equal(t, "prod", s.ID)
	assert.Equal(t, "10.0.0.5", s.Host)
	assert.Equal(t, 6443, s.Port)
	assert.Equal(t, "https://10.0.0.5:6443", s.APIURL)
	assert.Equal(t, TLSVerify, s.TLSPolicy)
}

func TestDescriptor_EndpointIPv6(t *testing.T) {
	t.Parallel()

	d := Descriptor{Host: "fd00::1", Port: 6443}
	assert.Equal(t, "[fd00::1]:6443", d.Endpoint())
}

func TestDescriptor_Validate(t *testing.T) {
	t.Parallel()

	valid := Descriptor{ID: "a", Host: "h", Port: 6443, Token: "t", TLSPolicy: TLSInsecure}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Descriptor)
		errMsg string
	}{
		{"missing id", func(d *Descriptor) { d.ID = " " }, "cluster id is required"},
		{"missing host", func(d *Descriptor) { d.Host = "" }, "host is required"},
		{"bad port", func(d *Descriptor) { d.Port = 0 }, "out of range"},
		{"empty token", func(d *Descriptor) { d.Token = "" }, "credential must not be empty"},
		{"bad policy", func(d *Descriptor) { d.TLSPolicy = "nope" }, "invalid tls policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := valid
			tt.mutate(&d)
			err := d.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSplitEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{in: "10.0.0.5:6443", wantHost: "10.0.0.5", wantPort: 6443},
		{in: "https://api.example.com:8443/", wantHost: "api.example.com", wantPort: 8443},
		{in: "api.example.com", wantHost: "api.example.com", wantPort: DefaultAPIPort},
		{in: "[fd00::1]:6443", wantHost: "fd00::1", wantPort: 6443},
		{in: "host:notaport", wantErr: true},
		{in: "host:70000", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			host, port, err := SplitEndpoint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}
