package locker

const UnlockScript = unlockScript

func (l *RedisLocker) SetTokenFunc(f func() string) {
	l.token = f
}
