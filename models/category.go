package models

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CategoryWithCount struct {
	Category
	PostCount int `json:"post_count"`
}
