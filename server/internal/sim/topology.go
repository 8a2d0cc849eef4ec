package sim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yaroslav/stretchsim/pkg/scenario"
	"github.com/yaroslav/stretchsim/server/internal/array"
	"github.com/yaroslav/stretchsim/server/internal/host"
	"github.com/yaroslav/stretchsim/server/internal/mediator"
)

// Names used by the two-site topology.
const (
	Site1          = "site1"
	Site2          = "site2"
	CloudSwitch    = "cloudswitch"
	CloudMediator  = "cloud-mediator"
	StretchedPod   = "pod1"
	PodVolume      = "podds1"
	QualifiedPodDS = StretchedPod + "::" + PodVolume
)

// Replication transports.
const (
	ReplicationEthernet = scenario.ReplicationEthernet
	ReplicationFC       = scenario.ReplicationFC
)

// TopologyOptions shapes the two-site topology.
type TopologyOptions struct {
	// WANLatency is the round-trip latency across the WAN; each WAN link
	// gets half of it.
	WANLatency float64

	// WANBandwidth is the bandwidth ceiling of WAN links.
	WANBandwidth float64

	// Replication is ReplicationEthernet or ReplicationFC.
	Replication string

	// UniformHostAccess gives each host paths to the remote array too.
	UniformHostAccess bool

	// PreferLocalArray marks each host's remote paths non-optimized. It
	// requires UniformHostAccess.
	PreferLocalArray bool

	// FailoverPreference, if set, names the pod's preferred array.
	FailoverPreference string

	// Workload makes both hosts write the pod volume every tick and read
	// it every second tick.
	Workload bool
}

// DefaultTopologyOptions returns a 3-unit WAN with ethernet replication and
// a host workload.
func DefaultTopologyOptions() TopologyOptions {
	return TopologyOptions{
		WANLatency:   3,
		WANBandwidth: 10,
		Replication:  ReplicationEthernet,
		Workload:     true,
	}
}

// SiteArray returns the array name of a site.
func SiteArray(site string) string { return site + "fa1" }

// SiteHost returns the host name of a site.
func SiteHost(site string) string { return site + "vmhost" }

type site struct {
	name         string
	array        *array.FlashArray
	host         string
	fcA, fcB     string
	mgmt1, mgmt2 string
	rep1, rep2   string
}

// BuildStretchedCluster lays out two sites and a cloud mediator site, and
// creates pod1 on site1's array stretched to site2's.
//
// Each site has an array, a host, FC switches A and B, management switches
// 1 and 2 and replication switches 1 and 2. The cloud switch links every
// management switch to the mediator.
func (s *Simulation) BuildStretchedCluster(opts TopologyOptions) error {
	if opts.Replication == "" {
		opts.Replication = ReplicationEthernet
	}
	if opts.Replication != ReplicationEthernet && opts.Replication != ReplicationFC {
		return s.rejected("build topology", fmt.Errorf("unknown replication transport %q", opts.Replication))
	}
	if opts.PreferLocalArray && !opts.UniformHostAccess {
		return s.rejected("build topology", fmt.Errorf("preferred arrays require uniform host access"))
	}

	b := &builder{s: s}
	s1 := b.site(Site1)
	s2 := b.site(Site2)
	b.cloud(s1, s2)
	if b.err != nil {
		return fmt.Errorf("build topology: %w", b.err)
	}

	b.must(s.CreatePod(StretchedPod, CloudMediator))
	b.must(s.AddVolumeToPod(StretchedPod, PodVolume))
	b.check(s.AddArrayToPod(StretchedPod, s1.array.Name()))

	half, bw := opts.WANLatency/2, opts.WANBandwidth
	fcWAN := false
	switch opts.Replication {
	case ReplicationEthernet:
		for _, st := range []*site{s1, s2} {
			b.attachController(st, array.PortRep0, st.rep1, array.PortRep1, st.rep2)
		}
		b.link(PortRef{Device: s1.rep1}, PortRef{Device: s2.rep1}, half, bw, true)
		b.link(PortRef{Device: s1.rep2}, PortRef{Device: s2.rep2}, half, bw, true)
		for _, st := range []*site{s1, s2} {
			b.link(PortRef{Device: st.rep1}, PortRef{Device: st.rep2}, 0, 0, false)
		}
	case ReplicationFC:
		b.fcWAN(s1, s2, half, bw)
		fcWAN = true
		for _, st := range []*site{s1, s2} {
			b.attachController(st, array.PortRep0, st.fcA, array.PortRep1, st.fcB)
		}
	}
	b.check(s.AddArrayToPod(StretchedPod, s2.array.Name()))
	if b.err != nil {
		return fmt.Errorf("build topology: %w", b.err)
	}

	for _, st := range []*site{s1, s2} {
		b.check(s.MapVolume(st.array.Name(), st.host, QualifiedPodDS))
	}

	if opts.UniformHostAccess {
		if !fcWAN {
			b.fcWAN(s1, s2, half, bw)
		}
		for _, pair := range [][2]*site{{s1, s2}, {s2, s1}} {
			local, remote := pair[0], pair[1]
			b.check(s.CreateHostEntry(remote.array.Name(), local.host))
			b.check(s.MapVolume(remote.array.Name(), local.host, QualifiedPodDS))
			b.targets(local.host, remote.array)
			if opts.PreferLocalArray {
				b.check(s.AddPreferredArray(remote.array.Name(), local.host, local.array.Name()))
			}
		}
	}

	if opts.FailoverPreference != "" {
		b.check(s.SetFailoverPreference(StretchedPod, opts.FailoverPreference))
	}
	if opts.Workload {
		for _, st := range []*site{s1, s2} {
			b.check(s.SetHostWorkload(st.host, QualifiedPodDS))
		}
	}

	if b.err != nil {
		return fmt.Errorf("build topology: %w", b.err)
	}
	s.logger.Info("stretched cluster built",
		zap.String("replication", opts.Replication),
		zap.Float64("wan_latency", opts.WANLatency),
		zap.Bool("uniform_host_access", opts.UniformHostAccess),
	)
	return nil
}

// builder keeps the first error and turns every later step into a no-op.
type builder struct {
	s   *Simulation
	err error
}

func (b *builder) check(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *builder) must(_ any, err error) { b.check(err) }

func (b *builder) link(x, y PortRef, latency, bandwidth float64, wan bool) {
	if b.err != nil {
		return
	}
	_, err := b.s.Connect(x, y, latency, bandwidth, wan)
	b.check(err)
}

func (b *builder) switches(names ...string) {
	for _, n := range names {
		if b.err != nil {
			return
		}
		b.must(b.s.CreateSwitch(n))
	}
}

func (b *builder) site(name string) *site {
	st := &site{
		name:  name,
		host:  SiteHost(name),
		fcA:   name + "fcswitcha",
		fcB:   name + "fcswitchb",
		mgmt1: name + "mgmtswitch1",
		mgmt2: name + "mgmtswitch2",
		rep1:  name + "replicationswitch1",
		rep2:  name + "replicationswitch2",
	}
	if b.err != nil {
		return st
	}
	a, err := b.s.CreateArray(SiteArray(name))
	if err != nil {
		b.check(err)
		return st
	}
	st.array = a
	b.must(b.s.CreateHost(st.host, 2))
	b.check(b.s.CreateHostEntry(a.Name(), st.host))
	b.switches(st.fcA, st.fcB, st.mgmt1, st.mgmt2, st.rep1, st.rep2)

	b.link(PortRef{Device: st.host, Port: "p0"}, PortRef{Device: st.fcA}, 0, 0, false)
	b.link(PortRef{Device: st.host, Port: "p1"}, PortRef{Device: st.fcB}, 0, 0, false)
	b.attachController(st, array.PortFC0, st.fcA, array.PortFC1, st.fcB)
	b.targets(st.host, a)
	b.attachController(st, array.PortMgmt0, st.mgmt1, array.PortMgmt1, st.mgmt2)
	return st
}

// attachController connects port0 of both controllers to sw0 and port1 to sw1.
func (b *builder) attachController(st *site, port0, sw0, port1, sw1 string) {
	if st.array == nil {
		return
	}
	for _, c := range st.array.ControllerNames() {
		b.link(PortRef{Device: c, Port: port0}, PortRef{Device: sw0}, 0, 0, false)
		b.link(PortRef{Device: c, Port: port1}, PortRef{Device: sw1}, 0, 0, false)
	}
}

// targets points a host's p0 at fc0 and p1 at fc1 of both of a's controllers.
func (b *builder) targets(hostName string, a *array.FlashArray) {
	if a == nil {
		return
	}
	for _, c := range a.ControllerNames() {
		b.check(b.s.AddHostTarget(hostName, host.Target{HostPort: "p0", Controller: c, ControllerPort: array.PortFC0}))
		b.check(b.s.AddHostTarget(hostName, host.Target{HostPort: "p1", Controller: c, ControllerPort: array.PortFC1}))
	}
}

func (b *builder) fcWAN(s1, s2 *site, half, bw float64) {
	b.link(PortRef{Device: s1.fcA}, PortRef{Device: s2.fcA}, half, bw, true)
	b.link(PortRef{Device: s1.fcB}, PortRef{Device: s2.fcB}, half, bw, true)
}

func (b *builder) cloud(sites ...*site) {
	b.switches(CloudSwitch)
	if b.err != nil {
		return
	}
	b.must(b.s.CreateMediator(CloudMediator))
	b.link(PortRef{Device: CloudMediator, Port: mediator.DefaultPort}, PortRef{Device: CloudSwitch}, 0, 0, false)
	for _, st := range sites {
		b.link(PortRef{Device: CloudSwitch}, PortRef{Device: st.mgmt1}, 0, 0, false)
		b.link(PortRef{Device: CloudSwitch}, PortRef{Device: st.mgmt2}, 0, 0, false)
	}
}
