// Package domain provides core business rules for the interventions bounded
// context: the status graph, actor authorization per edge, and the
// client-facing status labels.
package domain

// Status is the canonical state of an intervention request.
type Status string

const (
	StatusPending       Status = "pending"
	StatusSearching     Status = "searching"
	StatusAssigned      Status = "assigned"
	StatusEnRoute       Status = "en_route"
	StatusArrived       Status = "arrived"
	StatusDiagnosing    Status = "diagnosing"
	StatusQuoteSent     Status = "quote_sent"
	StatusQuoteAccepted Status = "quote_accepted"
	StatusInProgress    Status = "in_progress"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

// Kind distinguishes immediate call-outs from scheduled appointments.
type Kind string

const (
	KindImmediate Kind = "urgence"
	KindScheduled Kind = "rdv"
)

// Actor identifies who is attempting a transition.
type Actor string

const (
	ActorClient   Actor = "client"
	ActorArtisan  Actor = "artisan"
	ActorOperator Actor = "operator"
	ActorSystem   Actor = "system"
)

// successors is the legal transition graph. Cancellation is reachable from
// every non-terminal state and is handled separately in CanTransition so the
// graph only lists forward edges plus the assigned→searching rollback.
var successors = map[Status][]Status{
	StatusPending:       {StatusSearching},
	StatusSearching:     {StatusAssigned},
	StatusAssigned:      {StatusEnRoute, StatusSearching},
	StatusEnRoute:       {StatusArrived},
	StatusArrived:       {StatusDiagnosing},
	StatusDiagnosing:    {StatusQuoteSent},
	StatusQuoteSent:     {StatusQuoteAccepted},
	StatusQuoteAccepted: {StatusInProgress},
	StatusInProgress:    {StatusCompleted},
}

// artisanEdges are the edges an artisan holding the accepted assignment may
// drive. Quote acceptance is normally the client's action but the artisan
// may record it when obtained on site.
var artisanEdges = map[Status]Status{
	StatusAssigned:      StatusEnRoute,
	StatusEnRoute:       StatusArrived,
	StatusArrived:       StatusDiagnosing,
	StatusDiagnosing:    StatusQuoteSent,
	StatusQuoteSent:     StatusQuoteAccepted,
	StatusQuoteAccepted: StatusInProgress,
	StatusInProgress:    StatusCompleted,
}

// IsTerminal returns true when no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSearching, StatusAssigned, StatusEnRoute,
		StatusArrived, StatusDiagnosing, StatusQuoteSent, StatusQuoteAccepted,
		StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsSuccessor reports whether to is a legal successor of from, ignoring
// actor authorization. Cancellation counts from any non-terminal state.
func IsSuccessor(from, to Status) bool {
	if to == StatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether the actor is authorized to move the request
// from one status to another. Holding the accepted assignment is a separate
// check performed by the service for artisan actors.
func CanTransition(from, to Status, actor Actor) bool {
	if !IsSuccessor(from, to) {
		return false
	}

	if to == StatusCancelled {
		// Clients and operators may withdraw; the system cancels on behalf
		// of operators (admin tooling). Artisans never cancel a request.
		return actor == ActorClient || actor == ActorOperator || actor == ActorSystem
	}

	switch actor {
	case ActorSystem, ActorOperator:
		// Dispatch-managed edges plus the assigned→searching rollback.
		switch {
		case from == StatusPending && to == StatusSearching,
			from == StatusSearching && to == StatusAssigned,
			from == StatusAssigned && to == StatusSearching:
			return true
		}
		return false
	case ActorArtisan:
		return artisanEdges[from] == to
	case ActorClient:
		// Clients accept quotes; everything else is cancel-only.
		return from == StatusQuoteSent && to == StatusQuoteAccepted
	}
	return false
}

// clientLabels are the coarse French status labels shown to clients.
var clientLabels = map[Status]string{
	StatusPending:       "demande enregistrée",
	StatusSearching:     "recherche en cours",
	StatusAssigned:      "artisan trouvé",
	StatusEnRoute:       "artisan en route",
	StatusArrived:       "artisan sur place",
	StatusDiagnosing:    "diagnostic en cours",
	StatusQuoteSent:     "devis envoyé",
	StatusQuoteAccepted: "devis accepté",
	StatusInProgress:    "intervention en cours",
	StatusCompleted:     "intervention terminée",
	StatusCancelled:     "demande annulée",
}

// ClientLabel returns the client-facing label for a status.
func (s Status) ClientLabel() string {
	if label, ok := clientLabels[s]; ok {
		return label
	}
	return string(s)
}

// InitialStatus returns the status a freshly created request starts in:
// immediate call-outs go straight to searching, scheduled jobs wait in
// pending until their dispatch window.
func InitialStatus(kind Kind) Status {
	if kind == KindImmediate {
		return StatusSearching
	}
	return StatusPending
}
