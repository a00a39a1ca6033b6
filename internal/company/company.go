// Package company attributes visitor IPs to the organizations they belong to.
package company

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/ignite/visitor-insights/internal/visitor"
)

// Unknown is reported for addresses no directory knows about.
const Unknown = "Unknown Company"

// ErrNotFound is returned by a Directory that has no entry for an address.
var ErrNotFound = errors.New("company: not found")

// Company is one entry of the company directory.
type Company struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Location    string   `json:"location,omitempty"`
	IPAddresses []string `json:"ip_addresses,omitempty"`
}

// Directory looks up the company owning an IP address.
type Directory interface {
	LookupByIP(ctx context.Context, ip string) (*Company, error)
}

// Resolver maps an IP address to a company name, Unknown when unattributed.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (string, error)
}

// DirectoryResolver consults directories in order and returns the first hit.
type DirectoryResolver struct {
	dirs []Directory
}

func NewDirectoryResolver(dirs ...Directory) *DirectoryResolver {
	return &DirectoryResolver{dirs: dirs}
}

func (r *DirectoryResolver) Resolve(ctx context.Context, ip string) (string, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return Unknown, nil
	}
	for _, d := range r.dirs {
		c, err := d.LookupByIP(ctx, ip)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("resolve company for %s: %w", ip, err)
		}
		if c != nil && c.Name != "" {
			return c.Name, nil
		}
	}
	return Unknown, nil
}

// StaticDirectory is an in-memory directory keyed by address.
type StaticDirectory struct {
	byIP map[netip.Addr]Company
}

// NewStaticDirectory indexes companies by each of their addresses.
// Unparseable addresses are skipped.
func NewStaticDirectory(companies []Company) *StaticDirectory {
	d := &StaticDirectory{byIP: make(map[netip.Addr]Company)}
	for _, c := range companies {
		for _, ip := range c.IPAddresses {
			if addr, err := netip.ParseAddr(strings.TrimSpace(ip)); err == nil {
				d.byIP[addr.Unmap()] = c
			}
		}
	}
	return d
}

func (d *StaticDirectory) LookupByIP(_ context.Context, ip string) (*Company, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return nil, ErrNotFound
	}
	c, ok := d.byIP[addr.Unmap()]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Len returns the number of indexed addresses.
func (d *StaticDirectory) Len() int { return len(d.byIP) }

// DefaultCompanies is the built-in directory used when no database is configured.
var DefaultCompanies = []Company{
	{Name: "Microsoft Corporation", Domain: "microsoft.com", Industry: "Technology", IPAddresses: []string{"69.191.211.207"}},
	{Name: "Salesforce Inc", Domain: "salesforce.com", Industry: "Software", IPAddresses: []string{"180.179.180.41"}},
	{Name: "Amazon Web Services", Domain: "aws.amazon.com", Industry: "Cloud", IPAddresses: []string{"3.141.5.27"}},
	{Name: "Deutsche Bank AG", Domain: "db.com", Industry: "Financial Services", IPAddresses: []string{"80.246.241.14"}},
	{Name: "JPMorgan Chase", Domain: "jpmorganchase.com", Industry: "Financial Services", IPAddresses: []string{"162.249.164.251"}},
	{Name: "OpenDNS/Cisco", Domain: "opendns.com", Industry: "Networking", IPAddresses: []string{"208.67.222.222"}},
	{Name: "Fastly CDN", Domain: "fastly.com", Industry: "CDN", IPAddresses: []string{"151.101.193.140"}},
	{Name: "Cloudflare", Domain: "cloudflare.com", Industry: "CDN", IPAddresses: []string{"104.16.132.229"}},
	{Name: "Meta/Facebook", Domain: "meta.com", Industry: "Technology", IPAddresses: []string{"173.252.74.22"}},
	{Name: "Google LLC", Domain: "google.com", Industry: "Technology", IPAddresses: []string{"142.250.80.14"}},
}

// Enrich returns copies of records attributed to their resolved company.
// Records that already name a company are left as they are. Each distinct
// address is resolved once per call.
func Enrich(ctx context.Context, r Resolver, records []visitor.Record) ([]visitor.Record, error) {
	resolved := make(map[string]string)
	out := make([]visitor.Record, len(records))
	for i, rec := range records {
		if rec.Company() != "" {
			out[i] = rec
			continue
		}
		ip := rec.IPAddress()
		name, ok := resolved[ip]
		if !ok {
			var err error
			name, err = r.Resolve(ctx, ip)
			if err != nil {
				return nil, err
			}
			resolved[ip] = name
		}
		out[i] = rec.WithCompany(name)
	}
	return out, nil
}
