package resource

// The fixed set of collections the service exposes. The store binds each
// name lazily on first use; registration here only gates the HTTP surface.
const (
	Students           = "students"
	Teachers           = "teachers"
	Classes            = "classes"
	Subjects           = "subjects"
	Fees               = "fees"
	Attendance         = "attendance"
	Marks              = "marks"
	Dormitories        = "dormitories"
	StoreItems         = "store_items"
	ItemRequests       = "item_requests"
	Users              = "users"
	AuditLogs          = "audit_logs"
	AssignmentLogs     = "assignment_logs"
	OccupancySnapshots = "occupancy_snapshots"
)

// Collections lists every registered collection, in registration order.
var Collections = []string{
	Students,
	Teachers,
	Classes,
	Subjects,
	Fees,
	Attendance,
	Marks,
	Dormitories,
	StoreItems,
	ItemRequests,
	Users,
	AuditLogs,
	AssignmentLogs,
	OccupancySnapshots,
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Collections))
	for _, c := range Collections {
		m[c] = struct{}{}
	}
	return m
}()

// Known reports whether name is a registered collection.
func Known(name string) bool {
	_, ok := known[name]
	return ok
}
