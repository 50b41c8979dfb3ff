package validate

import (
	"strings"

	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

// DefaultRole is given to new users created without one.
const DefaultRole = "subscriber"

// BrandForm is the brand create/edit form. Partial forms only check fields
// that are set.
type BrandForm struct {
	Partial     bool   `json:"-"`
	Name        string `json:"name" validate:"required_unless=Partial true,max=200"`
	Slug        string `json:"slug" validate:"omitempty,slug"`
	Description string `json:"description"`
	ImageID     int    `json:"image_id" validate:"min=0"`
	MenuOrder   *int   `json:"menu_order" validate:"omitempty,min=0"`
}

// Validate checks the form.
func (f BrandForm) Validate() error { return Struct("brand", f) }

// Input converts the form to an API payload.
func (f BrandForm) Input() wpapi.BrandInput {
	in := wpapi.BrandInput{
		Name:        strings.TrimSpace(f.Name),
		Slug:        f.Slug,
		Description: f.Description,
		MenuOrder:   f.MenuOrder,
	}
	if f.ImageID > 0 {
		in.Image = &wpapi.Image{ID: f.ImageID}
	}
	return in
}

// ProductForm is the product create/edit form.
type ProductForm struct {
	Partial          bool    `json:"-"`
	Name             string  `json:"name" validate:"required_unless=Partial true,max=200"`
	SKU              string  `json:"sku"`
	RegularPrice     string  `json:"regular_price" validate:"omitempty,decimal"`
	SalePrice        *string `json:"sale_price" validate:"omitempty,decimal"`
	Status           string  `json:"status" validate:"omitempty,oneof=draft pending private publish"`
	StockStatus      string  `json:"stock_status" validate:"omitempty,oneof=instock outofstock onbackorder"`
	StockQuantity    *int    `json:"stock_quantity" validate:"omitempty,min=0"`
	Description      string  `json:"description"`
	ShortDescription string  `json:"short_description"`
	BrandIDs         []int   `json:"brands" validate:"dive,gt=0"`
	CategoryIDs      []int   `json:"categories" validate:"dive,gt=0"`
	TagIDs           []int   `json:"tags" validate:"dive,gt=0"`
	ImageIDs         []int   `json:"images" validate:"dive,gt=0"`
}

// Validate checks the form.
func (f ProductForm) Validate() error { return Struct("product", f) }

// Input converts the form to an API payload. Stock is managed whenever a
// quantity is given.
func (f ProductForm) Input() wpapi.ProductInput {
	in := wpapi.ProductInput{
		Name:             strings.TrimSpace(f.Name),
		Status:           f.Status,
		SKU:              f.SKU,
		RegularPrice:     f.RegularPrice,
		SalePrice:        f.SalePrice,
		Description:      f.Description,
		ShortDescription: f.ShortDescription,
		StockStatus:      f.StockStatus,
		StockQuantity:    f.StockQuantity,
		Brands:           refs(f.BrandIDs),
		Categories:       refs(f.CategoryIDs),
		Tags:             refs(f.TagIDs),
	}
	if !f.Partial {
		in.Type = "simple"
	}
	if f.StockQuantity != nil {
		managed := true
		in.ManageStock = &managed
	}
	for _, id := range f.ImageIDs {
		in.Images = append(in.Images, wpapi.Image{ID: id})
	}
	return in
}

func refs(ids []int) []wpapi.TermRef {
	if len(ids) == 0 {
		return nil
	}
	out := make([]wpapi.TermRef, len(ids))
	for i, id := range ids {
		out[i] = wpapi.TermRef{ID: id}
	}
	return out
}

// HomepageForm is the homepage item form. The linked target must match the
// link type.
type HomepageForm struct {
	Partial          bool   `json:"-"`
	TitleEn          string `json:"title_en" validate:"required_unless=Partial true,max=200"`
	TitleID          string `json:"title_id" validate:"required_unless=Partial true,max=200"`
	SubtitleEn       string `json:"subtitle_en" validate:"max=300"`
	SubtitleID       string `json:"subtitle_id" validate:"max=300"`
	LinkType         string `json:"link_type" validate:"required_unless=Partial true,omitempty,oneof=brand category custom"`
	LinkedBrandID    int    `json:"linked_brand_id" validate:"required_if=LinkType brand"`
	LinkedCategoryID int    `json:"linked_category_id" validate:"required_if=LinkType category"`
	CustomURL        string `json:"custom_url" validate:"required_if=LinkType custom,omitempty,url"`
	ImageURL         string `json:"image_url" validate:"required_unless=Partial true,omitempty,url"`
	Status           string `json:"status" validate:"omitempty,oneof=enabled disabled"`
	SortOrder        *int   `json:"sort_order" validate:"omitempty,min=0"`
}

// Validate checks the form.
func (f HomepageForm) Validate() error { return Struct("homepage item", f) }

// Item converts the form to an API payload. Link targets that do not match
// the link type are dropped.
func (f HomepageForm) Item() wpapi.HomepageItem {
	item := wpapi.HomepageItem{
		TitleEn:    strings.TrimSpace(f.TitleEn),
		TitleID:    strings.TrimSpace(f.TitleID),
		SubtitleEn: f.SubtitleEn,
		SubtitleID: f.SubtitleID,
		LinkType:   f.LinkType,
		ImageURL:   f.ImageURL,
		Status:     f.Status,
	}
	if item.Status == "" && !f.Partial {
		item.Status = "enabled"
	}
	switch f.LinkType {
	case wpapi.LinkBrand:
		item.LinkedBrandID = f.LinkedBrandID
	case wpapi.LinkCategory:
		item.LinkedCategoryID = f.LinkedCategoryID
	case wpapi.LinkCustom:
		item.CustomURL = f.CustomURL
	}
	if f.SortOrder != nil {
		item.SortOrder = *f.SortOrder
	}
	return item
}

// UserForm is the new-user form.
type UserForm struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	Name      string   `json:"name" validate:"max=200"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles" validate:"dive,oneof=administrator editor author contributor subscriber shop_manager customer"`
}

// Validate checks the form.
func (f UserForm) Validate() error { return Struct("user", f) }

// Input converts the form to an API payload. The username is the local part
// of the email address.
func (f UserForm) Input() wpapi.UserInput {
	email := strings.TrimSpace(f.Email)
	username, _, _ := strings.Cut(email, "@")
	roles := f.Roles
	if len(roles) == 0 {
		roles = []string{DefaultRole}
	}
	return wpapi.UserInput{
		Username:  username,
		Email:     email,
		Password:  f.Password,
		Name:      f.Name,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Roles:     roles,
	}
}

// ProfileForm edits the signed-in user's own account. Empty fields are left
// unchanged.
type ProfileForm struct {
	Name      string `json:"name" validate:"max=200"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"omitempty,min=8"`
}

// Validate checks the form.
func (f ProfileForm) Validate() error { return Struct("profile", f) }

// Input converts the form to an API payload.
func (f ProfileForm) Input() wpapi.UserInput {
	return wpapi.UserInput{
		Name:      strings.TrimSpace(f.Name),
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Password:  f.Password,
	}
}

// PriceForm is one price history entry.
type PriceForm struct {
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
	Price  float64 `json:"price" validate:"gt=0"`
	Source string  `json:"source" validate:"max=100"`
}

// Validate checks the form.
func (f PriceForm) Validate() error { return Struct("price entry", f) }

// Entry converts the form to an API payload.
func (f PriceForm) Entry() wpapi.PriceEntry {
	return wpapi.PriceEntry{Date: f.Date, Price: f.Price, Source: strings.TrimSpace(f.Source)}
}
