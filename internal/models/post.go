package models

// Post форумный пост с конфигом, привязанный к игровому серверу.
// Принадлежит пользователю и удаляется каскадно вместе с ним.
type Post struct {
	ID             int64  // Внутренний ID строки
	UserID         int64  // Владелец поста
	Server         string // Название игрового сервера
	Title          string // Заголовок
	Description    string // Описание конфига
	ScreenshotPath string // Ссылка на скриншот, может быть пустой
	DownloadURL    string // Ссылка на скачивание, может быть пустой
	ViewCount      int64  // Количество просмотров
	CreatedAt      int64  // Момент создания, epoch-миллисекунды
}

// PostInfo пост с данными автора и количеством лайков для выдачи наружу.
type PostInfo struct {
	ID              int64  `json:"id"`
	Server          string `json:"server"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ScreenshotPath  string `json:"screenshotPath,omitempty"`
	DownloadURL     string `json:"downloadUrl,omitempty"`
	ViewCount       int64  `json:"viewCount"`
	CreatedAt       int64  `json:"createdAt"`
	AuthorUID       int64  `json:"authorUid"`
	AuthorUsername  string `json:"authorUsername"`
	AuthorAvatarURL string `json:"authorAvatarUrl,omitempty"`
	LikeCount       int64  `json:"likeCount"`
}

// PostLike лайк поста, уникален по паре (пользователь, пост).
type PostLike struct {
	UserID    int64
	PostID    int64
	CreatedAt int64
}
