package models

// PageOptions describes one page request.
type PageOptions struct {
	Page  int
	Limit int
	// Route is the absolute URL the links are built from.
	Route string
	// Name, when not empty, filters users by a name substring.
	Name string
}

type PageMeta struct {
	TotalItems   int `json:"totalItems"`
	ItemCount    int `json:"itemCount"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
}

type PageLinks struct {
	First    string `json:"first"`
	Previous string `json:"previous"`
	Next     string `json:"next"`
	Last     string `json:"last"`
}

// Pagination is one page of T plus navigation data.
type Pagination[T any] struct {
	Items []T       `json:"items"`
	Meta  PageMeta  `json:"meta"`
	Links PageLinks `json:"links"`
}
