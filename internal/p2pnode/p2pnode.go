// Package p2pnode wires a libp2p host, a Kademlia DHT, mDNS peer discovery,
// and a gossip pubsub instance together, mirroring the teacher's
// pkg/p2p.P2P constructor (minus opencoin's Kyber session-key handshake,
// which belongs to opencoin's validator gossip, not this service).
package p2pnode

import (
	"context"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/record"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"go.uber.org/zap"
)

const (
	mdnsServiceTag          = "wasmexecd"
	discoveryConnectTimeout = 10 * time.Second

	// ModuleAnnounceTopic is the gossip topic a successful Registry.Register
	// broadcasts on (SPEC_FULL.md §11): best-effort, additive only — the DHT
	// put remains the only write path.
	ModuleAnnounceTopic = "wasmexecd/module-announce/v1"
)

// Node bundles the libp2p host, DHT, and pubsub instance used by the DHT
// store backend and the module-announce gossip feature.
type Node struct {
	Host   host.Host
	DHT    *dht.IpfsDHT
	PubSub *pubsub.PubSub

	mdns  mdns.Service
	topic *pubsub.Topic
	sub   *pubsub.Subscription
}

// Config configures peer listening and bootstrap.
type Config struct {
	ListenAddrs    []string
	BootstrapPeers []string
}

// New generates an ephemeral ed25519 identity (spec §6 "DHT mode") and
// starts a libp2p host, Kademlia DHT, mDNS discovery, and gossipsub.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Node, error) {
	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}

	opts := []libp2p.Option{libp2p.Identity(priv)}
	for _, addr := range cfg.ListenAddrs {
		opts = append(opts, libp2p.ListenAddrStrings(addr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("libp2p new: %w", err)
	}

	kad, err := dht.New(ctx, h, dht.Validator(record.NamespacedValidator{
		"wasmexec": moduleRecordValidator{},
	}))
	if err != nil {
		return nil, fmt.Errorf("dht new: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("pubsub new: %w", err)
	}

	n := &Node{Host: h, DHT: kad, PubSub: ps}

	topic, err := ps.Join(ModuleAnnounceTopic)
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", ModuleAnnounceTopic, err)
	}
	n.topic = topic
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", ModuleAnnounceTopic, err)
	}
	n.sub = sub
	go n.readAnnouncements(ctx, logger)

	n.mdns = mdns.NewMdnsService(h, mdnsServiceTag, &discoveryNotifee{host: h, logger: logger})
	if err := n.mdns.Start(); err != nil {
		logger.Warn("mdns discovery failed to start", zap.Error(err))
	}

	for _, addr := range cfg.BootstrapPeers {
		if err := n.connect(ctx, addr); err != nil {
			logger.Warn("failed to connect bootstrap peer", zap.String("addr", addr), zap.Error(err))
		}
	}

	return n, nil
}

func (n *Node) connect(ctx context.Context, addr string) error {
	info, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return err
	}
	return n.Host.Connect(ctx, *info)
}

// Announce publishes name on ModuleAnnounceTopic so peers can opportunistically
// warm their own DHT lookups. Called by the registry after a successful
// Register; never on the read path and never required for correctness.
func (n *Node) Announce(ctx context.Context, name string) error {
	return n.topic.Publish(ctx, []byte(name))
}

// readAnnouncements logs module names announced by peers until sub is
// cancelled (on Close) or ctx is done.
func (n *Node) readAnnouncements(ctx context.Context, logger *zap.Logger) {
	for {
		msg, err := n.sub.Next(ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == n.Host.ID() {
			continue
		}
		logger.Debug("module announced by peer", zap.String("name", string(msg.Data)), zap.String("peer", msg.ReceivedFrom.String()))
	}
}

// Close tears down the gossip subscription, mDNS, the DHT, and the host.
func (n *Node) Close() error {
	if n.sub != nil {
		n.sub.Cancel()
	}
	if n.topic != nil {
		_ = n.topic.Close()
	}
	if n.mdns != nil {
		_ = n.mdns.Close()
	}
	if n.DHT != nil {
		_ = n.DHT.Close()
	}
	return n.Host.Close()
}

// moduleRecordValidator accepts any put under the "wasmexec" namespace: spec
// §1's Non-goals exclude a capability/permission model for host imports, so
// records are not signature-checked. Select keeps the first value offered,
// since module records are immutable once stored.
type moduleRecordValidator struct{}

func (moduleRecordValidator) Validate(key string, value []byte) error { return nil }

func (moduleRecordValidator) Select(key string, values [][]byte) (int, error) {
	return 0, nil
}

type discoveryNotifee struct {
	host   host.Host
	logger *zap.Logger
}

func (d *discoveryNotifee) HandlePeerFound(pi peer.AddrInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), discoveryConnectTimeout)
	defer cancel()
	if err := d.host.Connect(ctx, pi); err != nil {
		d.logger.Debug("failed to connect to mdns-discovered peer", zap.String("peer", pi.ID.String()), zap.Error(err))
	}
}
