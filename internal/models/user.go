package models

// User is an account in the directory. The id is either assigned by a
// federated identity provider on first sign-in or generated at registration.
// Name and ProfilePic are nullable columns.
type User struct {
	ID         string  `db:"id" json:"userId"`
	Name       *string `db:"name" json:"name"`
	Email      string  `db:"email" json:"email"`
	ProfilePic *string `db:"profile_pic" json:"profilePic"`
}

// Profile is the public view of a user returned by search and friend listings.
type Profile struct {
	ID         string  `db:"id" json:"id"`
	Name       *string `db:"name" json:"name"`
	ProfilePic *string `db:"profile_pic" json:"profilePic"`
}
