// Package http provides HTTP handlers and middleware for the kiosk API.
//
// The router exposes the following endpoints:
//   - GET /zones, POST /zones, GET /zones/{id}, PUT /zones/{id},
//     DELETE /zones/{id}: zone catalog endpoints exchanging the `zoneDTO`
//     payload defined in zone_handler.go.
//   - GET /zones/{id}/schedule?week_start=YYYY-MM-DD: the evaluated slot map
//     for the seven days starting at week_start.
//   - POST /zones/{id}/schedule: saves one proposed rule. Overlapping rules
//     are rejected with 409 and a full conflict list.
//   - DELETE /zones/{id}/schedule: removes rule rows addressed by mode,
//     target date and signature carried in the request body.
//   - GET /zones/{id}/schedule/blocks?date=YYYY-MM-DD: the merged display
//     blocks for one day.
//   - GET /zones/{id}/schedule/overrides?from=&to=: denormalized per-date
//     capacity override records.
//   - GET /zones/{id}/schedule/views?date=YYYY-MM-DD: occupied, unavailable
//     and exhausted views cross-referencing bookings against the rule map.
//   - PUT /zones/{id}/bookings, DELETE /zones/{id}/bookings/{instanceId}:
//     booking mirror maintenance driven by the booking subsystem.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
