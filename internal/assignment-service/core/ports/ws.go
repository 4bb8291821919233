package ports

import websocketdto "food-dispatch/internal/assignment-service/core/domain/websocket_dto"

//go:generate mockgen -source=ws.go -destination=mocks/ws_mock.go -package=mocks

// IDriverPusher delivers events to connected drivers.
type IDriverPusher interface {
	// SendToDriver returns myerrors.ErrDriverNotConnected when the driver has
	// no open connection.
	SendToDriver(driverID string, event websocketdto.Event) error
}
