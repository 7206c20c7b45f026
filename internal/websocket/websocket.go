package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Константы для типов сообщений WebSocket
const (
	InspectionStatusUpdateType = "INSPECTION_STATUS_UPDATE"
	VehicleStatusUpdateType    = "VEHICLE_STATUS_UPDATE"
)

// WebSocketMessage представляет формат сообщения WebSocket
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// InspectionStatusPayload — содержимое уведомления об изменении статуса осмотра
type InspectionStatusPayload struct {
	InspectionID uint   `json:"inspection_id"`
	VehicleID    uint   `json:"vehicle_id"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updated_at"`
}

// VehicleStatusPayload — содержимое уведомления об изменении
// эксплуатационного статуса машины
type VehicleStatusPayload struct {
	VehicleID uint   `json:"vehicle_id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// WebSocketManager управляет всеми подключениями WebSocket
type WebSocketManager struct {
	clientsByUser map[uint]map[*websocket.Conn]bool
	register      chan *WebSocketClient
	unregister    chan *WebSocketClient
	mutex         sync.RWMutex
}

// WebSocketClient представляет клиентское соединение WebSocket
type WebSocketClient struct {
	conn   *websocket.Conn
	userID uint
}

// Глобальный менеджер WebSocket
var wsManager = NewWebSocketManager()

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Разрешаем подключения с любых источников
	},
}

// NewWebSocketManager создает новый менеджер WebSocket
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clientsByUser: make(map[uint]map[*websocket.Conn]bool),
		register:      make(chan *WebSocketClient),
		unregister:    make(chan *WebSocketClient),
	}
}

// Start запускает обработку подключений WebSocket
func (manager *WebSocketManager) Start() {
	log.Printf("Запуск WebSocket Manager")
	go func() {
		for {
			select {
			case client := <-manager.register:
				manager.mutex.Lock()
				if _, ok := manager.clientsByUser[client.userID]; !ok {
					manager.clientsByUser[client.userID] = make(map[*websocket.Conn]bool)
				}
				manager.clientsByUser[client.userID][client.conn] = true
				manager.mutex.Unlock()
				log.Printf("WebSocket: подключен пользователь %d", client.userID)

			case client := <-manager.unregister:
				manager.mutex.Lock()
				if conns, ok := manager.clientsByUser[client.userID]; ok {
					if _, ok := conns[client.conn]; ok {
						delete(conns, client.conn)
						client.conn.Close()
						if len(conns) == 0 {
							delete(manager.clientsByUser, client.userID)
						}
					}
				}
				manager.mutex.Unlock()
				log.Printf("WebSocket: отключен пользователь %d", client.userID)
			}
		}
	}()
}

// StartManager запускает глобальный менеджер
func StartManager() {
	wsManager.Start()
}

// sendToUser отправляет сообщение на все соединения пользователя
func (manager *WebSocketManager) sendToUser(userID uint, message *WebSocketMessage) {
	manager.mutex.RLock()
	conns, ok := manager.clientsByUser[userID]
	if !ok {
		manager.mutex.RUnlock()
		return
	}

	// Копируем список соединений, чтобы не держать блокировку во время записи
	targets := make([]*websocket.Conn, 0, len(conns))
	for conn := range conns {
		targets = append(targets, conn)
	}
	manager.mutex.RUnlock()

	for _, conn := range targets {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(message); err != nil {
			log.Printf("WebSocket: ошибка отправки пользователю %d: %v", userID, err)
			manager.unregister <- &WebSocketClient{conn: conn, userID: userID}
		}
	}
}

// broadcast отправляет сообщение всем подключенным пользователям
func (manager *WebSocketManager) broadcast(message *WebSocketMessage) {
	manager.mutex.RLock()
	userIDs := make([]uint, 0, len(manager.clientsByUser))
	for id := range manager.clientsByUser {
		userIDs = append(userIDs, id)
	}
	manager.mutex.RUnlock()

	for _, id := range userIDs {
		manager.sendToUser(id, message)
	}
}

// SendVehicleStatusUpdate рассылает всем подключенным уведомление об изменении
// статуса машины: его меняет принятый осмотр, а следят за ним все роли
func SendVehicleStatusUpdate(vehicleID uint, status string) {
	wsManager.broadcast(&WebSocketMessage{
		Type: VehicleStatusUpdateType,
		Payload: VehicleStatusPayload{
			VehicleID: vehicleID,
			Status:    status,
			UpdatedAt: time.Now().Format(time.RFC3339),
		},
	})
}

// SendInspectionStatusUpdate отправляет пользователю уведомление об изменении
// статуса осмотра
func SendInspectionStatusUpdate(userID, inspectionID, vehicleID uint, status string) {
	wsManager.sendToUser(userID, &WebSocketMessage{
		Type: InspectionStatusUpdateType,
		Payload: InspectionStatusPayload{
			InspectionID: inspectionID,
			VehicleID:    vehicleID,
			Status:       status,
			UpdatedAt:    time.Now().Format(time.RFC3339),
		},
	})
}

// Handler обрабатывает подключение WebSocket (маршрут защищен JWT middleware)
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Требуется авторизация"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket: ошибка обновления соединения: %v", err)
			return
		}

		client := &WebSocketClient{conn: conn, userID: userID.(uint)}
		wsManager.register <- client

		// Читаем входящие сообщения только ради обнаружения разрыва
		go func() {
			defer func() {
				wsManager.unregister <- client
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
