package httpapi

import (
	"net/http"

	"github.com/fairyhunter13/storefront-api/internal/catalog"
)

func (a *App) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	cats, err := a.Catalog.ListCategories(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.Catalog.ListProducts(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	p, err := a.Catalog.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) createProductHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := a.admin(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.Catalog.CreateProduct(r.Context(), caller, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := a.admin(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.Catalog.UpdateProduct(r.Context(), caller, r.PathValue("id"), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := a.admin(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.Catalog.DeleteProduct(r.Context(), caller, r.PathValue("id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (a *App) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := a.admin(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var in catalog.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	c, err := a.Catalog.CreateCategory(r.Context(), caller, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
