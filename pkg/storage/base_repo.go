package storage

// BaseRepository 通用CRUD接口（对外导出）
// 这是一个标记接口，具体的CRUD接口显式定义 Save、GetByID、Delete 方法并嵌入此接口
type BaseRepository interface{}
