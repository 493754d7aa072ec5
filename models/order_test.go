package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		StatusPending:    {StatusApproved, StatusRejected},
		StatusApproved:   {StatusDispatched, StatusRejected},
		StatusDispatched: {StatusDelivered, StatusReturned},
	}
	all := []OrderStatus{StatusPending, StatusApproved, StatusDispatched, StatusDelivered, StatusReturned, StatusRejected}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusDispatched.Terminal())
	assert.False(t, OrderStatus("shipped").Valid())
	assert.True(t, StatusReturned.Restocks())
	assert.False(t, StatusDelivered.Restocks())
}

func TestNormalizeCartMergesDuplicates(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	got := NormalizeCart([]CartItem{{a, 1}, {b, 2}, {a, 3}})

	assert.Equal(t, []CartItem{{a, 4}, {b, 2}}, got)
}

func TestDistinctProductIDs(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	o := Order{Cart: []OrderLine{{ProductID: a}, {ProductID: b}, {ProductID: a}}}

	assert.Equal(t, []primitive.ObjectID{a, b}, o.DistinctProductIDs())
	assert.True(t, o.HasProduct(b))
	assert.False(t, o.HasProduct(primitive.NewObjectID()))
}
