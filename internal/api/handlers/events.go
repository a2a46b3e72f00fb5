package handlers

import (
	"strconv"

	"github.com/mugz-josh/Deliverieseasy/internal/service/delivery"
	"github.com/mugz-josh/Deliverieseasy/pkg/websocket"
)

// HubPublisher pushes delivery events to websocket clients following the
// delivery, to admins, and to the owning customer and assigned rider.
type HubPublisher struct {
	Hub *websocket.Hub
}

// PublishDeliveryEvent implements delivery.EventPublisher
func (p HubPublisher) PublishDeliveryEvent(e delivery.Event) {
	if p.Hub == nil || e.Delivery == nil {
		return
	}
	msg := websocket.Message{Type: string(e.Type), Data: e.Delivery}

	audience := websocket.Audience{
		EntityID:  strconv.FormatInt(e.DeliveryID, 10),
		UserTypes: []string{"admin"},
		UserIDs:   []string{strconv.FormatInt(e.Delivery.CustomerID, 10)},
	}
	if e.Delivery.RiderID != nil {
		audience.UserIDs = append(audience.UserIDs, strconv.FormatInt(*e.Delivery.RiderID, 10))
	}
	p.Hub.Publish(audience, msg)
}
