// Package domain models NASA DONKI space weather event data.
//
// # Data Source
//
// Events originate from NASA's DONKI (Database Of Notifications, Knowledge,
// Information) REST API at https://api.nasa.gov/DONKI/. Two catalogs are
// consumed: /CME (Coronal Mass Ejections) and /GST (Geomagnetic Storms).
// Both return a JSON array of event objects for a startDate/endDate range.
// Data is available from 2010 onwards and queries are capped at one year.
//
// # DONKI Conventions
//
// Activity identifiers:
//
//	"<startTime>-<catalog>-<seq>"  →  e.g. "2020-01-01T12:00:00-CME-001".
//	A GST's linkedEvents list references other activities by these IDs.
//	An ID containing "-CME-" is treated as a CME reference; anything else
//	(FLR, SEP, IPS, ...) is ignored by the linker.
//
// Timestamps:
//
//	UTC, usually minute precision with a Z suffix ("2016-09-06T14:12Z"),
//	occasionally second precision or missing the zone. All accepted layouts
//	normalize to a UTC instant. A record whose start time parses to nothing
//	is dropped with a warning, never batch-fatal.
//
// CME analyses:
//
//	Zero or more analysis sub-records per CME carrying speed (km/s), type
//	code ("S", "C", "O", "R"), principal angle, and source latitude and
//	longitude. Only the first analysis is used. Absent or unparsable numeric
//	fields become NaN rather than errors, so one malformed analysis never
//	aborts a batch. A CME without analyses keeps type "Unknown" and all-NaN
//	numerics.
//
// Kp index:
//
//	A 0-9 scalar measuring geomagnetic disturbance intensity. GST records
//	carry a list of samples; the first sample is taken as the record's Kp
//	value, 0 when the list is empty.
//
// # Linking
//
// For each GST, every linkedEvents entry bearing the CME marker is resolved
// against the CME table by exact ID (top-down scan, first row wins). Each
// resolved pair yields one linked row with the signed propagation time
// (gstTime - cmeTime) in hours. A GST may fan out to several CMEs and
// several GSTs may reference the same CME. GSTs with no resolvable CME are
// absent from the output entirely.
package domain
