package store

// redis key layout, one logical DB per record kind
func jobKey(id string) string { return "job:" + id }

func chatKey(id string) string { return "chat:" + id }

func chatOwnerKey(id string) string { return "chatowner:" + id }

func documentKey(owner, source string) string { return "doc:" + owner + ":" + source }

func documentIndexKey(owner string) string { return "docs:" + owner }

func lockKey(owner string) string { return "chatlock:" + owner }

func auditKey(owner string) string { return "audit:" + owner }

func sessionKey(token string) string { return "chatsession:" + token }

func sessionIndexKey(owner string) string { return "chatsessions:" + owner }
