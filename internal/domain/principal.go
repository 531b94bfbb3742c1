package domain

// Role — роль аутентифицированного пользователя.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Principal — аутентифицированный субъект запроса.
// Проверку учётных данных выполняет внешний слой; ядро доверяет этим полям
// и получает их явным параметром, а не из ambient-состояния.
type Principal struct {
	UserID string
	Roles  []Role
}

// IsAdmin сообщает, есть ли у субъекта административная роль.
func (p Principal) IsAdmin() bool {
	for _, r := range p.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// CanAccessOrder проверяет право на чтение заказа: владелец или администратор.
func (p Principal) CanAccessOrder(order Order) bool {
	return p.IsAdmin() || order.UserID == p.UserID
}
