package backends

// CollectiveOps is an interface for collective operations, that is, operations executed across multiple
// replicas of the same program.
type CollectiveOps interface {
	// AllReduce reduces each operand across the replicas of each replica group, and returns the reduced
	// values (same shapes as the operands) to every replica of the group.
	//
	// - operands: list of operands to be reduced.
	// - reductionType: how the operands should be reduced.
	// - replicaGroups: each replica group ([]int) is a collection of replica indices that participate in
	//   the reduction together. If empty, all replicas form one group.
	AllReduce(operands []Op, reductionType ReduceOpType, replicaGroups [][]int) ([]Op, error)
}
