// Package http implements the HTTP request handlers for the license
// server. It is a thin layer between transport and the license domain:
// handlers parse and validate requests, delegate to the license
// service and activation workflow, and wrap every reply in the uniform
// response envelope.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Store
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Response Shape
//
// Every endpoint returns the envelope:
//
//	{
//	    "status": "Success" | "Error",
//	    "message": "...",
//	    "data": <payload>
//	}
//
// Middleware-level rejections (authentication, rate limit, panic
// recovery) use RFC 7807 problem responses instead; handler-level
// outcomes always use the envelope.
//
// # Routes
//
// Client routes require any authenticated token; administrative
// routes require the admin role:
//
//	POST /v1/licenses/check                  client
//	POST /v1/licenses/sendActivationRequest  client
//	GET  /v1/licenses                        admin
//	GET  /v1/licenses/{id}                   admin
//	POST /v1/licenses                        admin
//	PUT  /v1/licenses/{id}                   admin
//	DELETE /v1/licenses/{id}                 admin
//	GET  /v1/licenses/activationRequests     admin
//	DELETE /v1/licenses/activationRequest/{id} admin
package http
