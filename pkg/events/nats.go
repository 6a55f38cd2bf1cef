// Пакет events предоставляет обёртку для публикации доменных событий в NATS
package events

// Conn определяет минимальный интерфейс NATS-подключения:
// любая реализация (например *nats.Conn) должна предоставлять метод Publish.
// subject — тема, data — байтовый массив сообщения
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher хранит Conn и тему subject для публикации событий мутаций
type NATSPublisher struct {
	conn    Conn
	subject string
}

// NewPublisher создаёт NATSPublisher, связывая Conn и subject
func NewPublisher(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishEvent отправляет сериализованное событие в subject.
// Возвращает ошибку, если публикация не удалась
func (n *NATSPublisher) PublishEvent(data []byte) error {
	return n.conn.Publish(n.subject, data)
}
