package route

// Source labels attached to routing decisions. They name the reason a
// target was chosen, the way the demo output shows it.
const (
	LabelPrimary            = "PRIMARY"
	LabelPrimaryRecentWrite = "PRIMARY (recent write)"
	LabelPrimaryLagging     = "PRIMARY (replica lagging)"
	LabelPrimaryNoReplicas  = "PRIMARY (no replicas)"
	LabelReplica            = "REPLICA"
	LabelReplicaCaughtUp    = "REPLICA (caught up)"
	LabelReplicaSticky      = "REPLICA (sticky)"
)
