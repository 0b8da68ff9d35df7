package middleware

import (
	"net/http"

	"retailpos/internal/apierror"

	"github.com/gin-gonic/gin"
)

// Role is the staff role carried in the token.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleCashier   Role = "cashier"
	RoleInventory Role = "inventory"
)

// Capability names one guarded operation.
type Capability string

const (
	CapProcessSale     Capability = "process_sale"
	CapViewSales       Capability = "view_sales"
	CapVoidSale        Capability = "void_sale"
	CapRefundSale      Capability = "refund_sale"
	CapReceivePayment  Capability = "receive_payment"
	CapViewCredit      Capability = "view_credit"
	CapSyncDebt        Capability = "sync_debt"
	CapAdjustInventory Capability = "adjust_inventory"
	CapViewInventory   Capability = "view_inventory"
	CapManagePurchases Capability = "manage_purchases"
	CapCreditOverride  Capability = "credit_override"
)

var everyone = []Role{RoleOwner, RoleAdmin, RoleManager, RoleCashier, RoleInventory}

// policy is the single place that decides who may do what.
var policy = map[Capability][]Role{
	CapProcessSale:     {RoleOwner, RoleAdmin, RoleManager, RoleCashier},
	CapViewSales:       everyone,
	CapVoidSale:        {RoleOwner, RoleAdmin, RoleManager},
	CapRefundSale:      {RoleOwner, RoleAdmin, RoleManager},
	CapReceivePayment:  {RoleOwner, RoleAdmin, RoleManager, RoleCashier},
	CapViewCredit:      {RoleOwner, RoleAdmin, RoleManager, RoleCashier},
	CapSyncDebt:        {RoleOwner, RoleAdmin},
	CapAdjustInventory: {RoleOwner, RoleAdmin, RoleManager, RoleInventory},
	CapViewInventory:   everyone,
	CapManagePurchases: {RoleOwner, RoleAdmin, RoleManager, RoleInventory},
	CapCreditOverride:  {RoleOwner, RoleAdmin, RoleManager},
}

// Can reports whether role holds capability.
func Can(role Role, capability Capability) bool {
	for _, r := range policy[capability] {
		if r == role {
			return true
		}
	}
	return false
}

// RequireCapability rejects requests whose role lacks capability.
func RequireCapability(capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !Can(Role(claims.Role), capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}
