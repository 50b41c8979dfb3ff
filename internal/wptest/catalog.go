package wptest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// AddBrand stores a brand and returns it with its id.
func (s *Server) AddBrand(b wpapi.Brand) wpapi.Brand {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.id()
	}
	if b.Slug == "" {
		b.Slug = slugify(b.Name)
	}
	s.brands[b.ID] = b
	return b
}

// Brands returns the stored brands ordered by id.
func (s *Server) Brands() []wpapi.Brand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.brands)
}

// AddProduct stores a product and returns it with its id.
func (s *Server) AddProduct(p wpapi.Product) wpapi.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	if p.Status == "" {
		p.Status = "publish"
	}
	if p.StockStatus == "" {
		p.StockStatus = "instock"
	}
	s.products[p.ID] = p
	for _, ref := range p.Brands {
		if b, ok := s.brands[ref.ID]; ok {
			b.Count++
			s.brands[ref.ID] = b
		}
	}
	for _, ref := range p.Categories {
		if c, ok := s.categories[ref.ID]; ok {
			c.Count++
			s.categories[ref.ID] = c
		}
	}
	return p
}

// Products returns the stored products ordered by id.
func (s *Server) Products() []wpapi.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.products)
}

// AddCategory stores a product category.
func (s *Server) AddCategory(t wpapi.Term) wpapi.Term {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.categories[t.ID] = t
	return t
}

// AddTag stores a product tag.
func (s *Server) AddTag(t wpapi.Term) wpapi.Term {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.tags[t.ID] = t
	return t
}

// AddHomepageItem stores a homepage item.
func (s *Server) AddHomepageItem(h wpapi.HomepageItem) wpapi.HomepageItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == 0 {
		h.ID = s.id()
	}
	s.homepage[h.ID] = h
	return h
}

// HomepageItems returns the stored homepage items ordered by id.
func (s *Server) HomepageItems() []wpapi.HomepageItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.homepage)
}

// AddEvent appends an activity event.
func (s *Server) AddEvent(e wpapi.Event) wpapi.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.id()
	}
	s.events = append(s.events, e)
	return e
}

// Media returns the uploaded attachments.
func (s *Server) Media() []wpapi.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wpapi.Media(nil), s.media...)
}

// PriceHistory returns the stored entries for a product.
func (s *Server) PriceHistory(productID int) []wpapi.PriceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wpapi.PriceEntry(nil), s.prices[productID]...)
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

func (s *Server) failingBatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBatch > 0 {
		s.failBatch--
		return true
	}
	return false
}

// Products

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	brandFilter := map[int]bool{}
	if v := q.Get("brand"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if id, err := strconv.Atoi(part); err == nil {
				brandFilter[id] = true
			}
		}
	}
	category, _ := strconv.Atoi(q.Get("category"))

	var out []wpapi.Product
	for _, p := range s.Products() {
		if !matches(q.Get("search"), p.Name, p.SKU) {
			continue
		}
		if v := q.Get("status"); v != "" && v != "any" && p.Status != v {
			continue
		}
		if v := q.Get("stock_status"); v != "" && p.StockStatus != v {
			continue
		}
		if len(brandFilter) > 0 && !hasTerm(p.Brands, brandFilter) {
			continue
		}
		if category > 0 && !hasTerm(p.Categories, map[int]bool{category: true}) {
			continue
		}
		out = append(out, p)
	}

	if q.Get("orderby") == "date" {
		sort.SliceStable(out, func(i, j int) bool {
			if q.Get("order") == "asc" {
				return out[i].DateCreated < out[j].DateCreated
			}
			return out[i].DateCreated > out[j].DateCreated
		})
	}
	paginate(w, r, out)
}

func hasTerm(refs []wpapi.TermRef, ids map[int]bool) bool {
	for _, ref := range refs {
		if ids[ref.ID] {
			return true
		}
	}
	return false
}

func productFromInput(p wpapi.Product, in wpapi.ProductInput) wpapi.Product {
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Type != "" {
		p.Type = in.Type
	}
	if in.Status != "" {
		p.Status = in.Status
	}
	if in.SKU != "" {
		p.SKU = in.SKU
	}
	if in.RegularPrice != "" {
		p.RegularPrice = in.RegularPrice
		p.Price = in.RegularPrice
	}
	if in.SalePrice != nil {
		p.SalePrice = *in.SalePrice
		p.OnSale = *in.SalePrice != ""
		if p.OnSale {
			p.Price = *in.SalePrice
		}
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.ShortDescription != "" {
		p.ShortDescription = in.ShortDescription
	}
	if in.StockStatus != "" {
		p.StockStatus = in.StockStatus
	}
	if in.StockQuantity != nil {
		p.StockQuantity = in.StockQuantity
	}
	if in.Categories != nil {
		p.Categories = in.Categories
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	if in.Brands != nil {
		p.Brands = in.Brands
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	return p
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in wpapi.ProductInput
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "rest_missing_callback_param", "Missing parameter(s): name")
		return
	}
	p := productFromInput(wpapi.Product{Type: "simple", Status: "draft", StockStatus: "instock"}, in)
	p.Slug = slugify(p.Name)
	writeJSON(w, http.StatusCreated, s.AddProduct(p))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	p, found := s.products[id]
	s.mu.Unlock()
	if !found {
		notFound(w, "product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var in wpapi.ProductInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.products[id]
	if !found {
		notFound(w, "product")
		return
	}
	p = productFromInput(p, in)
	s.products[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.products[id]
	if !found {
		notFound(w, "product")
		return
	}
	if r.URL.Query().Get("force") == "true" {
		delete(s.products, id)
	} else {
		p.Status = "trash"
		s.products[id] = p
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listTerms(terms func() map[int]wpapi.Term) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.mu.Lock()
		all := sortedValues(terms())
		s.mu.Unlock()

		var out []wpapi.Term
		for _, t := range all {
			if matches(q.Get("search"), t.Name, t.Slug) {
				out = append(out, t)
			}
		}
		if q.Get("orderby") == "count" {
			sort.SliceStable(out, func(i, j int) bool {
				if q.Get("order") == "asc" {
					return out[i].Count < out[j].Count
				}
				return out[i].Count > out[j].Count
			})
		}
		paginate(w, r, out)
	}
}

// Brands

func (s *Server) listBrands(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var out []wpapi.Brand
	for _, b := range s.Brands() {
		if matches(q.Get("search"), b.Name, b.Slug) {
			out = append(out, b)
		}
	}
	switch q.Get("orderby") {
	case "count":
		sort.SliceStable(out, func(i, j int) bool {
			if q.Get("order") == "asc" {
				return out[i].Count < out[j].Count
			}
			return out[i].Count > out[j].Count
		})
	case "menu_order":
		sort.SliceStable(out, func(i, j int) bool { return out[i].MenuOrder < out[j].MenuOrder })
	}
	paginate(w, r, out)
}

func (s *Server) getBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	b, found := s.brands[id]
	s.mu.Unlock()
	if !found {
		notFound(w, "term")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func brandFromInput(b wpapi.Brand, in wpapi.BrandInput) wpapi.Brand {
	if in.Name != "" {
		b.Name = in.Name
	}
	if in.Slug != "" {
		b.Slug = in.Slug
	}
	if in.Description != "" {
		b.Description = in.Description
	}
	if in.Image != nil {
		b.Image = in.Image
	}
	if in.MenuOrder != nil {
		b.MenuOrder = *in.MenuOrder
	}
	return b
}

func (s *Server) createBrand(w http.ResponseWriter, r *http.Request) {
	var in wpapi.BrandInput
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "rest_missing_callback_param", "Missing parameter(s): name")
		return
	}
	for _, b := range s.Brands() {
		if strings.EqualFold(b.Name, in.Name) {
			writeError(w, http.StatusBadRequest, "term_exists", "A term with the name provided already exists with this parent.")
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.AddBrand(brandFromInput(wpapi.Brand{}, in)))
}

func (s *Server) updateBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var in wpapi.BrandInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.brands[id]
	if !found {
		notFound(w, "term")
		return
	}
	b = brandFromInput(b, in)
	s.brands[id] = b
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if r.URL.Query().Get("force") != "true" {
		writeError(w, http.StatusNotImplemented, "woocommerce_rest_trash_not_supported", "Resource does not support trashing.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.brands[id]
	if !found {
		notFound(w, "term")
		return
	}
	delete(s.brands, id)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) batchBrands(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Update []struct {
			ID        int `json:"id"`
			MenuOrder int `json:"menu_order"`
		} `json:"update"`
	}
	if !decode(w, r, &body) {
		return
	}
	if s.failingBatch() {
		writeError(w, http.StatusInternalServerError, "internal_server_error", "There has been a critical error on this website.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated := make([]wpapi.Brand, 0, len(body.Update))
	for _, u := range body.Update {
		b, found := s.brands[u.ID]
		if !found {
			continue
		}
		b.MenuOrder = u.MenuOrder
		s.brands[u.ID] = b
		updated = append(updated, b)
	}
	writeJSON(w, http.StatusOK, map[string]any{"update": updated})
}

// Homepage items

func (s *Server) listHomepage(w http.ResponseWriter, r *http.Request) {
	paginate(w, r, s.HomepageItems())
}

func (s *Server) getHomepage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	h, found := s.homepage[id]
	s.mu.Unlock()
	if !found {
		notFound(w, "homepage_item")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) createHomepage(w http.ResponseWriter, r *http.Request) {
	var in wpapi.HomepageItem
	if !decode(w, r, &in) {
		return
	}
	in.ID = 0
	writeJSON(w, http.StatusCreated, s.AddHomepageItem(in))
}

func (s *Server) updateHomepage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var in wpapi.HomepageItem
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.homepage[id]; !found {
		notFound(w, "homepage_item")
		return
	}
	in.ID = id
	s.homepage[id] = in
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) deleteHomepage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, found := s.homepage[id]
	if !found {
		notFound(w, "homepage_item")
		return
	}
	delete(s.homepage, id)
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) batchHomepage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Update []struct {
			ID        int `json:"id"`
			SortOrder int `json:"sort_order"`
		} `json:"update"`
	}
	if !decode(w, r, &body) {
		return
	}
	if s.failingBatch() {
		writeError(w, http.StatusInternalServerError, "internal_server_error", "There has been a critical error on this website.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range body.Update {
		if h, found := s.homepage[u.ID]; found {
			h.SortOrder = u.SortOrder
			s.homepage[u.ID] = h
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": len(body.Update)})
}
