package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionEventPublishFailed = "event_publish_failed"

	ActionSessionAlert     = "session_alert_raised"
	ActionSessionResolved  = "session_alert_resolved"
	ActionSessionStopped   = "session_stopped"
	ActionSessionStreaming = "session_streaming"
)
