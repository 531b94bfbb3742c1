package domain

// ProductRepository описывает требования к хранилищу каталога.
type ProductRepository interface {
	// Create сохраняет новый товар. Возвращает ErrProductExists, если ID уже занят.
	Create(product Product) error
	// Get возвращает товар по идентификатору или ErrProductNotFound, если его нет.
	Get(id string) (Product, error)
	// List возвращает товары каталога; onlyActive скрывает выключенные позиции.
	List(onlyActive bool) ([]Product, error)
	// Save перезаписывает атрибуты товара. Складской остаток и агрегат рейтинга
	// этим методом не трогаются: их меняют только checkout и агрегатор отзывов.
	Save(product Product) error
	// AddStock атомарно увеличивает остаток (административная дозакупка)
	// и возвращает обновлённый товар.
	AddStock(id string, qty int32) (Product, error)
}

// CartRepository описывает требования к хранилищу корзин.
type CartRepository interface {
	// GetOrCreate возвращает корзину пользователя, создавая её при первом обращении.
	// Реализация обязана быть идемпотентной: insert-if-absent под уникальным
	// ограничением на user_id, без гонки check-then-create.
	GetOrCreate(userID string) (Cart, error)
	// UpsertItem вставляет позицию или перезаписывает количество существующей
	// позиции той же пары (cart, product).
	UpsertItem(item CartItem) error
	// RemoveItem удаляет позицию; ErrCartItemNotFound, если её нет.
	RemoveItem(cartID, productID string) error
	// Clear удаляет все позиции корзины; идемпотентна.
	Clear(cartID string) error
}

// CheckoutRepository исполняет многосущностную транзакцию оформления заказа.
type CheckoutRepository interface {
	// PlaceOrder в одной атомарной единице работы: перепроверяет остатки по
	// текущему персистентному состоянию (под блокировкой строк товара),
	// сохраняет заказ с позициями, списывает остатки и удаляет из корзины
	// оформленные позиции. Строки, добавленные в корзину после снимка, из
	// которого построен заказ, остаются нетронутыми.
	// При нехватке остатка возвращает InsufficientStockError по первому
	// нарушившему товару, не оставляя частичных записей.
	// Возвращает товары, чей остаток после списания опустился до порога lowStockThreshold.
	PlaceOrder(order Order, lowStockThreshold int32) ([]Product, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByUser возвращает заказы пользователя по убыванию времени создания.
	ListByUser(userID string, limit int) ([]Order, error)
	// ListAll возвращает все заказы по убыванию времени создания (административная выборка).
	ListAll(limit int) ([]Order, error)
	// Save применяет обновления статусных полей с учётом optimistic locking.
	Save(order Order) error
}

// ReviewRepository описывает требования к хранилищу отзывов.
// Мутирующие методы пересчитывают агрегат рейтинга товара в той же
// транзакции, что и мутация отзыва, и возвращают новую сводку.
type ReviewRepository interface {
	// Create сохраняет отзыв; ErrReviewExists при повторном отзыве той же пары
	// (user, product), ErrProductNotFound при отсутствующем товаре.
	Create(review Review) (Review, RatingAggregate, error)
	// Update перезаписывает оценку и комментарий существующего отзыва.
	Update(review Review) (Review, RatingAggregate, error)
	// Delete удаляет отзыв и возвращает пересчитанную сводку товара.
	Delete(id string) (RatingAggregate, error)
	// Get возвращает отзыв или ErrReviewNotFound.
	Get(id string) (Review, error)
	// ListByProduct возвращает отзывы товара по убыванию времени создания.
	ListByProduct(productID string) ([]Review, error)
	// ListByUser возвращает отзывы пользователя по убыванию времени создания.
	ListByUser(userID string) ([]Review, error)
	// ListAll возвращает все отзывы (административная выборка).
	ListAll(limit int) ([]Review, error)
}
