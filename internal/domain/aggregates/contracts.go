package aggregates

// WriteTxOwnership says which layer opens the transaction for an aggregate write.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate: callers pass a plain context and the aggregate begins, retries
	// and commits the transaction itself.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy limits which reads an aggregate performs.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped: the aggregate reads only the rows its invariants depend on.
	// Listing and detail views go through the table repos.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
)

// ConcurrencyControl names how concurrent writers to one aggregate are ordered.
type ConcurrencyControl string

const (
	// ConcurrencyOptimisticVersion uses a version column, a conditional update and bounded retry.
	ConcurrencyOptimisticVersion ConcurrencyControl = "optimistic_version"
)

// Contract is the self-description every aggregate publishes.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Concurrency      ConcurrencyControl
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}
