// Package constituents reconciles constituent line items and their
// accreditations against stored state.
//
// A line item is one record collected from a poller page. Processing it:
//
//  1. locks the identity (client_id, external_id)
//  2. applies termination and fingerprints the record
//  3. looks up the stored constituent by fingerprint, then by identity
//  4. stores the decision on the constituent and its action record
//     (constituents, constituents_hash) in one transaction
//  5. reconciles the carried accreditation, if any, against the owner's set
//
// The accreditation endpoint reconciles a full set for one owner and, when
// the source reported the constituent as gone, sets its next action to
// delete. Both return the owner's accreditations with their next actions.
//
// # Routes
//
//	POST /constituents/line-items
//	POST /constituents/accreditations
//	GET  /constituents/:clientID/:externalID
package constituents
