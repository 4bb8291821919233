package bm

// Exchanges and routing keys of the dispatch pipeline.
const (
	OrderExchange    = "order_topic"
	DriverExchange   = "driver_topic"
	RegistryExchange = "registry_topic"

	OrderCreatedKey        = "order.created"
	AssignmentCompletedKey = "assignment.completed"
	AssignmentFailedKey    = "assignment.failed"
	AssignmentCancelledKey = "assignment.cancelled"

	DriverNotificationPrefix = "driver.notification."
	DriverResponsePrefix     = "driver.response."

	DriverRegistrationKey = "driver.registration"
	DriverSyncResultKey   = "driver.sync.result"
)

// Binding names a queue and the exchange pattern it is bound with.
type Binding struct {
	Exchange   string
	Queue      string
	BindingKey string
}

func DriverNotificationKey(driverID string) string {
	return DriverNotificationPrefix + driverID
}

func DriverResponseKey(orderID string) string {
	return DriverResponsePrefix + orderID
}
