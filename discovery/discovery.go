// Package discovery advertises and finds livechat listeners on the LAN over mDNS.
package discovery

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Dyastin-0/livechat/core"
	"github.com/Dyastin-0/livechat/logger"
	"github.com/grandcat/zeroconf"
)

const (
	ServiceType = "_livechat._tcp"
	Domain      = "local."

	DefaultBrowseTimeout = 3 * time.Second
)

// Peer is one advertised listener.
type Peer struct {
	Instance string
	HostName string
	Port     uint16
	IPs      []string
	Meta     map[string]string
}

// Targets returns one target per advertised IPv4 address.
func (p *Peer) Targets() []core.PeerTarget {
	targets := make([]core.PeerTarget, 0, len(p.IPs))
	for _, ip := range p.IPs {
		targets = append(targets, core.NewPeerTarget(ip, p.Port))
	}
	return targets
}

type Advertiser struct {
	server *zeroconf.Server
	log    logger.Logger
}

func NewAdvertiser(log logger.Logger) *Advertiser {
	if log == nil {
		log = logger.Nop()
	}
	return &Advertiser{log: log}
}

// Start registers instance on port until Stop is called.
func (a *Advertiser) Start(instance string, port uint16, meta map[string]string) error {
	server, err := zeroconf.Register(instance, ServiceType, Domain, int(port), txtRecords(meta), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	a.server = server
	a.log.WithStr("instance", instance).WithInt("port", int(port)).Info("advertising over mDNS")

	return nil
}

func (a *Advertiser) Stop() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

type Resolver struct {
	resolver *zeroconf.Resolver
	log      logger.Logger
}

func NewResolver(log logger.Logger) (*Resolver, error) {
	if log == nil {
		log = logger.Nop()
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	return &Resolver{resolver: resolver, log: log}, nil
}

// Browse streams peers until ctx is cancelled. Entries without an IPv4 address are skipped.
func (r *Resolver) Browse(ctx context.Context) (<-chan *Peer, error) {
	entries := make(chan *zeroconf.ServiceEntry)
	results := make(chan *Peer, 10)

	if err := r.resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse services: %w", err)
	}

	go func() {
		defer close(results)

		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}

				peer := fromEntry(entry)
				if len(peer.IPs) == 0 {
					continue
				}

				r.log.WithStr("instance", peer.Instance).WithAny("ips", peer.IPs).Debug("discovered peer")

				select {
				case results <- peer:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return results, nil
}

// Discover browses for timeout and returns every target found, deduplicated.
func (r *Resolver) Discover(ctx context.Context, timeout time.Duration) ([]core.PeerTarget, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	peers, err := r.Browse(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var targets []core.PeerTarget
	for peer := range peers {
		for _, t := range peer.Targets() {
			if seen[t.String()] {
				continue
			}
			seen[t.String()] = true
			targets = append(targets, t)
		}
	}

	return targets, nil
}

func fromEntry(entry *zeroconf.ServiceEntry) *Peer {
	peer := &Peer{
		Instance: entry.Instance,
		HostName: entry.HostName,
		Port:     uint16(entry.Port),
		Meta:     parseTXT(entry.Text),
	}

	for _, ip := range entry.AddrIPv4 {
		peer.IPs = append(peer.IPs, ip.String())
	}

	return peer
}

// txtRecords renders meta as sorted key=value records.
func txtRecords(meta map[string]string) []string {
	records := make([]string, 0, len(meta))
	for k, v := range meta {
		records = append(records, k+"="+v)
	}
	slices.Sort(records)
	return records
}

func parseTXT(records []string) map[string]string {
	meta := make(map[string]string, len(records))
	for _, record := range records {
		k, v, ok := strings.Cut(record, "=")
		if ok {
			meta[k] = v
		}
	}
	return meta
}
