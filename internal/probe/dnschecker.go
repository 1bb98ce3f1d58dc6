package probe

import (
	"context"
	"net/url"
)

// DNSDiagnoser wraps a checker and, when a probe fails without any HTTP
// response, classifies the host's DNS so the log says why.
type DNSDiagnoser struct {
	Inner   Checker
	Resolve func(ctx context.Context, host string) DNSStatus
}

func NewDNSDiagnoser(inner Checker) *DNSDiagnoser {
	return &DNSDiagnoser{Inner: inner, Resolve: CheckDNS}
}

func (d *DNSDiagnoser) Check(ctx context.Context, t Target) Outcome {
	out := d.Inner.Check(ctx, t)
	if out.Success || out.StatusCode != 0 {
		return out
	}
	dns := d.Resolve(ctx, extractHost(t.URL))
	out.DNSClass = dns.Class
	if dns.Class != DNSResolves {
		out.Message = out.Message + " (dns: " + dns.Class + ")"
	}
	return out
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
