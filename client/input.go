package client

// intentSender 输入意图的下游（会话实现）
type intentSender interface {
	Move(dir MoveDirection)
	Stop()
}

// InputController 把方向键转成移动意图：
// 新按下立即发 move（按住重复触发不重发），全部松开才发一次 stop。
// 多键同按时以最近按下的方向为准，不做对角合成。
type InputController struct {
	sender intentSender
	held   []MoveDirection // 按下顺序，最新的在末尾
}

func NewInputController(sender intentSender) *InputController {
	return &InputController{sender: sender}
}

// KeyDown 方向键按下
func (ic *InputController) KeyDown(dir MoveDirection) {
	for _, h := range ic.held {
		if h == dir {
			return
		}
	}
	ic.held = append(ic.held, dir)
	ic.sender.Move(dir)
}

// KeyUp 方向键抬起。仅当按住集合真正变空时发送 stop；
// 若仍有键按住，既不发 stop 也不重发剩余方向。
func (ic *InputController) KeyUp(dir MoveDirection) {
	removed := false
	for i, h := range ic.held {
		if h == dir {
			ic.held = append(ic.held[:i], ic.held[i+1:]...)
			removed = true
			break
		}
	}
	if removed && len(ic.held) == 0 {
		ic.sender.Stop()
	}
}

// HeldCount 当前按住的方向键数
func (ic *InputController) HeldCount() int {
	return len(ic.held)
}
