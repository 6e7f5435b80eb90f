package engine

import (
	"context"
	"fmt"
	"strings"
)

// State is the monotone registration/bootstrap lifecycle of §4.5 and
// Design Notes §9, made an explicit enum rather than the pair of 0/1/2
// integer flags the source this follows used.
type State int

const (
	StateIdle State = iota
	StateBootstrapRequested
	StateBootstrapServerKnown
	StateRegistrationSent
	StateRegistered
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBootstrapRequested:
		return "bootstrap-requested"
	case StateBootstrapServerKnown:
		return "bootstrap-server-known"
	case StateRegistrationSent:
		return "registration-sent"
	case StateRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// TickInterval is the registration task's poll period, matching the
// 15-second etimer of the engine this follows.
const TickInterval = 15

// Client drives the registration/bootstrap state machine. It holds no
// transport of its own; Tick calls out to the Transport collaborator and
// advances state from the result.
type Client struct {
	Registry  *Registry
	Transport Transport
	Network   Network
	Endpoint  string

	useBootstrap    bool
	useRegistration bool
	bootstrapAddr   string
	registrationAddr string
	lifetime        int

	state State
}

// NewClient builds a Client bound to reg, using transport and network for
// the collaborators named in §6.
func NewClient(reg *Registry, transport Transport, network Network, endpoint string) *Client {
	return &Client{Registry: reg, Transport: transport, Network: network, Endpoint: endpoint, lifetime: 86400}
}

// State returns the client's current lifecycle state.
func (c *Client) State() State { return c.state }

// UseBootstrapServer arms bootstrap against addr (empty defers to the
// network's DAG-root fallback) and resets the lifecycle to Idle, exactly
// as the engine this follows resets registered/bootstrapped to 0 whenever
// a server is (re)configured.
func (c *Client) UseBootstrapServer(addr string) {
	c.useBootstrap = true
	c.bootstrapAddr = addr
	c.state = StateIdle
}

// UseRegistrationServer arms direct registration against addr.
func (c *Client) UseRegistrationServer(addr string) {
	c.useRegistration = true
	c.registrationAddr = addr
	c.state = StateIdle
}

// SetLifetime overrides the registration lifetime sent in the "lt" query.
func (c *Client) SetLifetime(seconds int) { c.lifetime = seconds }

// RegisterDefaultObjects registers the Security, Server and Device objects
// a client needs before it can bootstrap or register, matching the
// `lwm2m_engine_register_default_objects` convenience entry point the
// engine this follows exposes to callers that don't want to build those
// three objects by hand.
func (c *Client) RegisterDefaultObjects(security, server, device *Object) error {
	if err := c.Registry.Register(security); err != nil {
		return err
	}
	if err := c.Registry.Register(server); err != nil {
		return err
	}
	return c.Registry.Register(device)
}

// Tick advances the state machine by one step, performing at most one
// blocking network operation, matching the ordered if/else-if cascade of
// the 15-second registration task this follows.
func (c *Client) Tick(ctx context.Context) error {
	if !c.Network.HasAccess() {
		return nil
	}

	switch {
	case c.useBootstrap && c.state == StateIdle:
		return c.requestBootstrap(ctx)
	case c.useBootstrap && c.state == StateBootstrapRequested:
		return c.resolveBootstrapServerURI()
	case c.useRegistration && c.state == StateBootstrapServerKnown:
		return c.requestRegistration(ctx)
	case c.useRegistration && c.state == StateIdle && !c.useBootstrap:
		c.state = StateBootstrapServerKnown
		return c.requestRegistration(ctx)
	default:
		// Registration only ever happens once per boot; the engine this
		// follows never resets `registered` on a later tick, so once
		// StateRegistered is reached Tick is a no-op forever after.
		return nil
	}
}

func (c *Client) resolveAddr(configured string) (string, error) {
	if configured != "" {
		if strings.HasPrefix(configured, "coaps:") {
			return "", fmt.Errorf("engine: secure CoAP requested but not supported - can not bootstrap or register")
		}
		return configured, nil
	}
	host, ok := c.Network.DAGRoot()
	if !ok {
		return "", fmt.Errorf("engine: no server address configured and no DAG root known")
	}
	return host, nil
}

func (c *Client) requestBootstrap(ctx context.Context) error {
	addr, err := c.resolveAddr(c.bootstrapAddr)
	if err != nil {
		return err
	}
	c.state = StateBootstrapRequested
	if err := c.Transport.BlockingPost(ctx, addr, "/bs", []string{"ep=" + c.Endpoint}, nil); err != nil {
		c.state = StateIdle
		return err
	}
	// bootstrapped==1: the request is acknowledged but the bootstrap
	// server still has to write the Security object back over separate
	// PUTs before this client knows where to register. StateBootstrap-
	// Requested is a resting state here, not transient within this call;
	// resolveBootstrapServerURI advances it on a later tick once that
	// write has landed, matching original_source lwm2m-engine.c:275-340.
	return nil
}

// securityResourceServerURI is the Security object's fixed Server-URI
// resource id (0), per OMA-TS-LightweightM2M-V1_0_2-20180209-A table E.1.
// Hardcoded here rather than imported from ipso to keep engine free of any
// dependency on the concrete objects built on top of it.
const securityResourceServerURI = 0

// resolveBootstrapServerURI implements the bootstrapped==1 phase: read the
// first USED Security (object 0) instance's Server-URI, parse it, and
// either arm registration against the parsed address or reject a coaps:
// scheme and regress to Idle, exactly as update_bootstrap_server does in
// the engine this follows.
func (c *Client) resolveBootstrapServerURI() error {
	security := c.Registry.Get(0)
	if security == nil {
		return fmt.Errorf("engine: bootstrap server has not written a Security object yet")
	}
	idx := security.FirstUsedInstance()
	if idx < 0 {
		return fmt.Errorf("engine: bootstrap server has not written a Security instance yet")
	}
	defIdx := definitionIndex(security, securityResourceServerURI)
	if defIdx < 0 {
		return fmt.Errorf("engine: Security object declares no Server-URI resource")
	}

	addr, err := parseServerURI(security.Instances[idx].Values[defIdx].Str)
	if err != nil {
		c.state = StateIdle
		return err
	}
	c.registrationAddr = addr
	c.state = StateBootstrapServerKnown
	return nil
}

// parseServerURI parses a Security object Server-URI value of the form
// "coap://host:port" or "coap://[ipv6]:port" into the host:port form
// Transport.BlockingPost expects, and rejects a "coaps:" scheme the way
// resolveAddr already rejects a directly configured coaps: address.
func parseServerURI(uri string) (string, error) {
	if strings.HasPrefix(uri, "coaps:") {
		return "", fmt.Errorf("engine: secure CoAP requested but not supported - can not bootstrap or register")
	}
	if !strings.HasPrefix(uri, "coap://") {
		return "", fmt.Errorf("engine: unsupported server URI %q", uri)
	}
	return strings.TrimPrefix(uri, "coap://"), nil
}

func (c *Client) requestRegistration(ctx context.Context) error {
	addr, err := c.resolveAddr(c.registrationAddr)
	if err != nil {
		return err
	}
	payload := c.registrationPayload()
	query := []string{
		"ep=" + c.Endpoint,
		fmt.Sprintf("lt=%d", c.lifetime),
		"lwm2m=1.0",
	}
	c.state = StateRegistrationSent
	if err := c.Transport.BlockingPost(ctx, addr, "/rd", query, []byte(payload)); err != nil {
		c.state = StateBootstrapServerKnown
		return err
	}
	c.state = StateRegistered
	return nil
}

// registrationPayload renders the comma-separated object/instance link
// list sent as the body of the RD registration POST: every USED instance
// of every registered object, in registration-then-slot order, with no
// leading root link and no exclusions - matching the rd_data loop in the
// engine this follows (lwm2m-engine.c:332-353) exactly.
func (c *Client) registrationPayload() string {
	var parts []string
	for _, object := range c.Registry.All() {
		for _, inst := range object.Instances {
			if inst.Used {
				parts = append(parts, fmt.Sprintf("<%d/%d>", object.ID, inst.ID))
			}
		}
	}
	return strings.Join(parts, ",")
}
