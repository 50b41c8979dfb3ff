package validate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
	"github.com/felixgeelhaar/twcadmin/internal/wpapi"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestBrandForm(t *testing.T) {
	tests := []struct {
		name   string
		form   BrandForm
		fields []string
	}{
		{"valid", BrandForm{Name: "Acme", Slug: "acme-tools", MenuOrder: intPtr(0)}, nil},
		{"missing name", BrandForm{}, []string{"name"}},
		{"partial without name", BrandForm{Partial: true, Slug: "acme"}, nil},
		{"name too long", BrandForm{Name: strings.Repeat("x", 201)}, []string{"name"}},
		{"bad slug", BrandForm{Name: "Acme", Slug: "Acme Tools"}, []string{"slug"}},
		{"negative order", BrandForm{Name: "Acme", MenuOrder: intPtr(-1)}, []string{"menu_order"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
			fields := Fields(err)
			for _, f := range tt.fields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestBrandFormInput(t *testing.T) {
	in := BrandForm{Name: "  Acme ", ImageID: 42, MenuOrder: intPtr(3)}.Input()

	assert.Equal(t, "Acme", in.Name)
	require.NotNil(t, in.Image)
	assert.Equal(t, 42, in.Image.ID)
	assert.Equal(t, 3, *in.MenuOrder)
}

func TestProductForm(t *testing.T) {
	tests := []struct {
		name   string
		form   ProductForm
		fields []string
	}{
		{"valid", ProductForm{Name: "Drill", RegularPrice: "19.99", Status: "draft", StockStatus: "instock"}, nil},
		{"whole price", ProductForm{Name: "Drill", RegularPrice: "20"}, nil},
		{"bad price", ProductForm{Name: "Drill", RegularPrice: "19,99"}, []string{"regular_price"}},
		{"bad sale price", ProductForm{Name: "Drill", SalePrice: strPtr("cheap")}, []string{"sale_price"}},
		{"bad status", ProductForm{Name: "Drill", Status: "published"}, []string{"status"}},
		{"bad stock status", ProductForm{Name: "Drill", StockStatus: "gone"}, []string{"stock_status"}},
		{"negative stock", ProductForm{Name: "Drill", StockQuantity: intPtr(-2)}, []string{"stock_quantity"}},
		{"bad brand id", ProductForm{Name: "Drill", BrandIDs: []int{0}}, []string{"brands[0]"}},
		{"partial update", ProductForm{Partial: true, RegularPrice: "5.00"}, nil},
		{"several at once", ProductForm{Status: "x", StockStatus: "y"}, []string{"name", "status", "stock_status"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Len(t, Fields(err), len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, Fields(err), f)
			}
		})
	}
}

func TestProductFormInput(t *testing.T) {
	in := ProductForm{Name: "Drill", StockQuantity: intPtr(4), BrandIDs: []int{7}, ImageIDs: []int{9}}.Input()

	assert.Equal(t, "simple", in.Type)
	require.NotNil(t, in.ManageStock)
	assert.True(t, *in.ManageStock)
	assert.Equal(t, []wpapi.TermRef{{ID: 7}}, in.Brands)
	assert.Equal(t, []wpapi.Image{{ID: 9}}, in.Images)
	assert.Nil(t, in.Categories)

	partial := ProductForm{Partial: true, RegularPrice: "1.00"}.Input()
	assert.Empty(t, partial.Type)
	assert.Nil(t, partial.ManageStock)
}

func TestHomepageForm(t *testing.T) {
	base := func() HomepageForm {
		return HomepageForm{
			TitleEn:  "New arrivals",
			TitleID:  "Produk baru",
			ImageURL: "https://cdn.shop.test/hero.jpg",
		}
	}

	tests := []struct {
		name   string
		mutate func(*HomepageForm)
		fields []string
	}{
		{"brand link", func(f *HomepageForm) { f.LinkType = "brand"; f.LinkedBrandID = 3 }, nil},
		{"brand link without brand", func(f *HomepageForm) { f.LinkType = "brand" }, []string{"linked_brand_id"}},
		{"category link without category", func(f *HomepageForm) { f.LinkType = "category" }, []string{"linked_category_id"}},
		{"custom link", func(f *HomepageForm) { f.LinkType = "custom"; f.CustomURL = "https://shop.test/sale" }, nil},
		{"custom link without url", func(f *HomepageForm) { f.LinkType = "custom" }, []string{"custom_url"}},
		{"custom link bad url", func(f *HomepageForm) { f.LinkType = "custom"; f.CustomURL = "sale" }, []string{"custom_url"}},
		{"unknown link type", func(f *HomepageForm) { f.LinkType = "page" }, []string{"link_type"}},
		{"missing titles", func(f *HomepageForm) { f.LinkType = "brand"; f.LinkedBrandID = 1; f.TitleEn = ""; f.TitleID = "" }, []string{"title_en", "title_id"}},
		{"bad status", func(f *HomepageForm) { f.LinkType = "brand"; f.LinkedBrandID = 1; f.Status = "on" }, []string{"status"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := base()
			tt.mutate(&form)
			err := form.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Len(t, Fields(err), len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, Fields(err), f)
			}
		})
	}
}

func TestHomepageFormItemDropsMismatchedTargets(t *testing.T) {
	item := HomepageForm{
		TitleEn:          "Tools",
		TitleID:          "Alat",
		LinkType:         "category",
		LinkedBrandID:    5,
		LinkedCategoryID: 8,
		CustomURL:        "https://shop.test",
		SortOrder:        intPtr(2),
	}.Item()

	assert.Equal(t, 8, item.LinkedCategoryID)
	assert.Zero(t, item.LinkedBrandID)
	assert.Empty(t, item.CustomURL)
	assert.Equal(t, "enabled", item.Status)
	assert.Equal(t, 2, item.SortOrder)
}

func TestUserForm(t *testing.T) {
	err := UserForm{Email: "not-an-email", Password: "short"}.Validate()
	require.Error(t, err)
	fields := Fields(err)
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 8 characters", fields["password"])

	err = UserForm{Email: "a@b.test", Password: "longenough", Roles: []string{"wizard"}}.Validate()
	require.Error(t, err)
	assert.Contains(t, Fields(err), "roles[0]")

	assert.NoError(t, UserForm{Email: "jane@shop.test", Password: "longenough"}.Validate())
}

func TestUserFormInput(t *testing.T) {
	in := UserForm{Email: " jane.doe@shop.test ", Password: "longenough"}.Input()

	assert.Equal(t, "jane.doe", in.Username)
	assert.Equal(t, "jane.doe@shop.test", in.Email)
	assert.Equal(t, []string{DefaultRole}, in.Roles)
}

func TestPriceForm(t *testing.T) {
	err := PriceForm{Date: "12/03/2025", Price: 0}.Validate()
	require.Error(t, err)
	fields := Fields(err)
	assert.Equal(t, "must be a date in the form 2006-01-02", fields["date"])
	assert.Equal(t, "must be greater than 0", fields["price"])

	form := PriceForm{Date: "2025-03-12", Price: 19.5, Source: " import "}
	require.NoError(t, form.Validate())
	assert.Equal(t, "import", form.Entry().Source)
}

func TestValidationErrorSuggestions(t *testing.T) {
	err := BrandForm{Slug: "Bad Slug"}.Validate()

	var adminErr *errors.AdminError
	require.ErrorAs(t, err, &adminErr)
	assert.Equal(t, "invalid brand", adminErr.Message)
	assert.Equal(t, []string{
		"name: is required",
		"slug: may only contain lowercase letters, numbers and dashes",
	}, adminErr.Suggestions)
}

func TestFieldsOfOtherErrors(t *testing.T) {
	assert.Nil(t, Fields(errors.New(errors.ErrCodeRemote, "boom")))
}

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	mp4Header  = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")
)

func TestUpload(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		kind    UploadKind
		want    string
		wantErr bool
	}{
		{"png", pngHeader, Image, "image/png", false},
		{"jpeg", jpegHeader, Image, "image/jpeg", false},
		{"mp4 where images only", mp4Header, Image, "", true},
		{"mp4 allowed", mp4Header, ImageOrVideo, "video/mp4", false},
		{"text", []byte("hello world"), ImageOrVideo, "", true},
		{"empty", nil, Image, "", true},
		{"image over limit", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxImageSize)...), Image, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Upload("file.bin", tt.content, tt.kind)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
				assert.Contains(t, Fields(err), "file")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
