package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	defer r.s.lock(ctx)()
	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return models.ErrEmailTaken
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	t := r.s.now()
	user.CreatedAt, user.UpdatedAt = t, t
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.s.lock(ctx)()
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *userRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	defer r.s.lock(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.Password = hash
	u.UpdatedAt = r.s.now()
	r.s.data.users[id] = u
	return nil
}

type productRepo struct{ s *Store }

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	defer r.s.lock(ctx)()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	if product.Images == nil {
		product.Images = []string{}
	}
	t := r.s.now()
	product.CreatedAt, product.UpdatedAt = t, t
	r.s.data.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *productRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	defer r.s.lock(ctx)()
	var matched []models.Product
	for _, p := range r.s.data.products {
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		matched = append(matched, copyProduct(p))
	}
	sort.Slice(matched, func(i, j int) bool {
		return newestFirst(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.PageSize
	if start < 0 || start >= len(matched) {
		return []models.Product{}, total, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *productRepo) All(ctx context.Context) ([]models.Product, error) {
	defer r.s.lock(ctx)()
	products := make([]models.Product, 0, len(r.s.data.products))
	for _, p := range r.s.data.products {
		products = append(products, copyProduct(p))
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *productRepo) Update(ctx context.Context, id primitive.ObjectID, patch models.ProductPatch) (*models.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	patch.Apply(&p)
	p.UpdatedAt = r.s.now()
	r.s.data.products[id] = copyProduct(p)
	return &p, nil
}

func (r *productRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.products[id]; !ok {
		return models.ErrProductNotFound
	}
	delete(r.s.data.products, id)
	return nil
}

func (r *productRepo) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for _, p := range r.s.data.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (r *productRepo) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if qty <= 0 {
		return models.Invalid("stock decrement must be positive, got %d", qty)
	}
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return models.ErrProductNotFound
	}
	if p.Stock < qty {
		return models.ErrInsufficientStock
	}
	p.Stock -= qty
	p.UpdatedAt = r.s.now()
	r.s.data.products[id] = p
	return nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return models.ErrProductNotFound
	}
	p.Stock += qty
	p.UpdatedAt = r.s.now()
	r.s.data.products[id] = p
	return nil
}

func (r *productRepo) SetRating(ctx context.Context, id primitive.ObjectID, rating float64, totalReviews int) error {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return models.ErrProductNotFound
	}
	p.Rating, p.TotalReviews = rating, totalReviews
	p.UpdatedAt = r.s.now()
	r.s.data.products[id] = p
	return nil
}

type categoryRepo struct{ s *Store }

func (r *categoryRepo) conflicts(c *models.Category) bool {
	for id, other := range r.s.data.categories {
		if id != c.ID && (other.Name == c.Name || other.Slug == c.Slug) {
			return true
		}
	}
	return false
}

func (r *categoryRepo) Create(ctx context.Context, category *models.Category) error {
	defer r.s.lock(ctx)()
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	if r.conflicts(category) {
		return models.ErrDuplicateCategory
	}
	t := r.s.now()
	category.CreatedAt, category.UpdatedAt = t, t
	r.s.data.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.categories[id]
	if !ok {
		return nil, models.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *categoryRepo) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	defer r.s.lock(ctx)()
	for _, c := range r.s.data.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, models.ErrCategoryNotFound
}

func (r *categoryRepo) List(ctx context.Context) ([]models.Category, error) {
	defer r.s.lock(ctx)()
	categories := make([]models.Category, 0, len(r.s.data.categories))
	for _, c := range r.s.data.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (r *categoryRepo) Update(ctx context.Context, category *models.Category) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.data.categories[category.ID]
	if !ok {
		return models.ErrCategoryNotFound
	}
	if r.conflicts(category) {
		return models.ErrDuplicateCategory
	}
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = r.s.now()
	r.s.data.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.categories[id]; !ok {
		return models.ErrCategoryNotFound
	}
	delete(r.s.data.categories, id)
	return nil
}

type cartRepo struct{ s *Store }

func (r *cartRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	defer r.s.lock(ctx)()
	return r.get(userID)
}

func (r *cartRepo) get(userID primitive.ObjectID) (*models.Cart, error) {
	c, ok := r.s.data.carts[userID]
	if !ok {
		return nil, models.ErrCartNotFound
	}
	c = copyCart(c)
	return &c, nil
}

func (r *cartRepo) AddItem(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error) {
	defer r.s.lock(ctx)()
	t := r.s.now()
	c, ok := r.s.data.carts[userID]
	if !ok {
		c = models.Cart{ID: primitive.NewObjectID(), UserID: userID, Items: []models.CartItem{}, CreatedAt: t}
	}
	c = copyCart(c)

	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, models.CartItem{ProductID: productID, Quantity: qty, AddedAt: t})
	}
	c.UpdatedAt = t
	r.s.data.carts[userID] = c
	return r.get(userID)
}

func (r *cartRepo) SetQuantity(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error) {
	defer r.s.lock(ctx)()
	return r.mutateLine(userID, productID, func(c *models.Cart, i int) {
		c.Items[i].Quantity = qty
	})
}

func (r *cartRepo) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error) {
	defer r.s.lock(ctx)()
	return r.mutateLine(userID, productID, func(c *models.Cart, i int) {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	})
}

func (r *cartRepo) mutateLine(userID, productID primitive.ObjectID, fn func(c *models.Cart, i int)) (*models.Cart, error) {
	c, ok := r.s.data.carts[userID]
	if !ok {
		return nil, models.ErrCartNotFound
	}
	c = copyCart(c)
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			fn(&c, i)
			c.UpdatedAt = r.s.now()
			r.s.data.carts[userID] = c
			return r.get(userID)
		}
	}
	return nil, models.ErrCartItemNotFound
}

func (r *cartRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	defer r.s.lock(ctx)()
	delete(r.s.data.carts, userID)
	return nil
}

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	defer r.s.lock(ctx)()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	r.s.data.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	defer r.s.lock(ctx)()
	orders := []models.Order{}
	for _, o := range r.s.data.orders {
		if o.UserID == userID {
			orders = append(orders, copyOrder(o))
		}
	}
	sortOrders(orders)
	return orders, nil
}

func (r *orderRepo) ListAll(ctx context.Context) ([]models.Order, error) {
	defer r.s.lock(ctx)()
	orders := make([]models.Order, 0, len(r.s.data.orders))
	for _, o := range r.s.data.orders {
		orders = append(orders, copyOrder(o))
	}
	sortOrders(orders)
	return orders, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (*models.Order, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	o = copyOrder(o)
	o.OrderStatus, o.PaymentStatus = orderStatus, paymentStatus
	o.UpdatedAt = r.s.now()
	r.s.data.orders[id] = o
	out := copyOrder(o)
	return &out, nil
}

func (r *orderRepo) HasPurchased(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	defer r.s.lock(ctx)()
	for _, o := range r.s.data.orders {
		if o.UserID == userID && o.OrderStatus != models.OrderCancelled && o.ContainsProduct(productID) {
			return true, nil
		}
	}
	return false, nil
}

type reviewRepo struct{ s *Store }

func (r *reviewRepo) Create(ctx context.Context, review *models.Review) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.data.reviews {
		if existing.UserID == review.UserID && existing.ProductID == review.ProductID {
			return models.ErrDuplicateReview
		}
	}
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	t := r.s.now()
	review.CreatedAt, review.UpdatedAt = t, t
	r.s.data.reviews[review.ID] = *review
	return nil
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error) {
	defer r.s.lock(ctx)()
	reviews := []models.Review{}
	for _, rv := range r.s.data.reviews {
		if rv.ProductID == productID {
			reviews = append(reviews, rv)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		return newestFirst(reviews[i].CreatedAt, reviews[j].CreatedAt, reviews[i].ID, reviews[j].ID)
	})
	return reviews, nil
}

func (r *reviewRepo) Exists(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	defer r.s.lock(ctx)()
	for _, rv := range r.s.data.reviews {
		if rv.UserID == userID && rv.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

type tokenLedger struct{ s *Store }

func (l *tokenLedger) Consume(ctx context.Context, jti string, expiresAt time.Time) error {
	defer l.s.lock(ctx)()
	now := l.s.now()
	for id, exp := range l.s.data.tokens {
		if !exp.After(now) {
			delete(l.s.data.tokens, id)
		}
	}
	if _, used := l.s.data.tokens[jti]; used {
		return models.ErrTokenUsed
	}
	l.s.data.tokens[jti] = expiresAt
	return nil
}

func (l *tokenLedger) Release(ctx context.Context, jti string) error {
	defer l.s.lock(ctx)()
	delete(l.s.data.tokens, jti)
	return nil
}
