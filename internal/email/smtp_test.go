package email

import "testing"

func TestDialerTLSModes(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "noreply@example.com", "user", "pass")
	if s.TLSMode != TLSStartTLS {
		t.Fatalf("default TLS mode = %q, want %q", s.TLSMode, TLSStartTLS)
	}

	d := s.dialer()
	if d.SSL {
		t.Error("starttls mode must not force implicit TLS")
	}
	if d.TLSConfig == nil || d.TLSConfig.ServerName != "smtp.example.com" {
		t.Error("starttls mode must pin the server name")
	}
	if d.TLSConfig.InsecureSkipVerify {
		t.Error("certificate verification must stay on by default")
	}

	s.TLSMode = TLSImplicit
	if d = s.dialer(); !d.SSL {
		t.Error("ssl mode must use implicit TLS")
	}

	s.TLSMode = TLSNone
	if d = s.dialer(); d.SSL {
		t.Error("none mode must not use implicit TLS")
	}
	if d.TLSConfig == nil || !d.TLSConfig.InsecureSkipVerify {
		t.Error("none mode skips certificate verification")
	}
}
