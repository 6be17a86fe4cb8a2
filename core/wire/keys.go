package wire

import "ranger-ims/core/model"

// Wire key names are a separate enumeration from the in-memory discriminants
// they map to, joined by the translation tables below, so the wire format can
// evolve without perturbing the model.

const (
	keyNumber          = "number"
	keyPriority        = "priority"
	keySummary         = "summary"
	keyLocation        = "location"
	keyRangerHandles   = "ranger_handles"
	keyIncidentTypes   = "incident_types"
	keyReportEntries   = "report_entries"
	keyTimestamp       = "timestamp"
	keyState           = "state"
	keyLocationName    = "location_name"    // pre-2015 flat location
	keyLocationAddress = "location_address" // pre-2015 flat location
	keyCreated         = "created"          // pre-2014 per-state timestamp
	keyDispatched      = "dispatched"       // pre-2014 per-state timestamp
	keyOnScene         = "on_scene"         // pre-2014 per-state timestamp
	keyClosed          = "closed"           // pre-2014 per-state timestamp
)

const (
	addressTypeText   = "text"
	addressTypeGarett = "garett"
)

// incidentKeys is the allow-list for top-level incident payload keys; the
// codec rejects anything else.
var incidentKeys = map[string]struct{}{
	keyNumber:          {},
	keyPriority:        {},
	keySummary:         {},
	keyLocation:        {},
	keyRangerHandles:   {},
	keyIncidentTypes:   {},
	keyReportEntries:   {},
	keyTimestamp:       {},
	keyState:           {},
	keyLocationName:    {},
	keyLocationAddress: {},
	keyCreated:         {},
	keyDispatched:      {},
	keyOnScene:         {},
	keyClosed:          {},
}

var reportKeys = map[string]struct{}{
	keyNumber:        {},
	keySummary:       {},
	keyReportEntries: {},
	keyTimestamp:     {},
	keyCreated:       {},
}

var stateNames = map[model.State]string{
	model.StateNew:        "new",
	model.StateOnHold:     "on_hold",
	model.StateDispatched: "dispatched",
	model.StateOnScene:    "on_scene",
	model.StateClosed:     "closed",
}

var statesByName = map[string]model.State{
	"new":        model.StateNew,
	"on_hold":    model.StateOnHold,
	"dispatched": model.StateDispatched,
	"on_scene":   model.StateOnScene,
	"closed":     model.StateClosed,
}

var addressTypeNames = map[model.AddressKind]string{
	model.AddressText:      addressTypeText,
	model.AddressRodGarett: addressTypeGarett,
}

var addressKindsByName = map[string]model.AddressKind{
	addressTypeText:   model.AddressText,
	addressTypeGarett: model.AddressRodGarett,
}
