// Package proxy forwards gateway requests to upstream services.
//
// The Orchestrator resolves the route and service endpoint of a request,
// serves cached GET responses, rebuilds the upstream URL with path
// parameters substituted, and calls the upstream through the service's
// circuit breaker. Every failure leaves Forward as a *util.GatewayError.
//
// Handler adapts the orchestrator to net/http and relays WebSocket
// upgrades opaquely.
//
//	orch := proxy.NewOrchestrator(table, breakers,
//	    proxy.WithCache(c),
//	    proxy.WithLogger(logger),
//	)
//	http.Handle("/", proxy.Handler(orch))
package proxy
